package entity

import "github.com/TorratDev/Grace/internal/actor"

// RegisterAll installs every entity actor factory on the host.
func RegisterAll(host *actor.Host, ctx *Ctx) {
	host.Register(actor.KindOwner, NewOwnerActor(ctx))
	host.Register(actor.KindOrganization, NewOrganizationActor(ctx))
	host.Register(actor.KindRepository, NewRepositoryActor(ctx))
	host.Register(actor.KindBranch, NewBranchActor(ctx))
	host.Register(actor.KindReference, NewReferenceActor(ctx))
	host.Register(actor.KindDirectoryVersion, NewDirectoryVersionActor(ctx))
	host.Register(actor.KindRepositoryName, NewRepositoryNameActor(ctx))
}
