package clientcmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// postJSON sends a command request and prints the server's reply.
func postJSON(apiURL func() string, path string, body map[string]interface{}) error {
	if _, ok := body["correlationId"]; !ok || body["correlationId"] == "" {
		body["correlationId"] = uuid.NewString()
	}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(apiURL()+path, "application/json", bytes.NewReader(b))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Printf("status: %s\n%s\n", resp.Status, out)
	return nil
}

// getJSON issues a query request and prints the server's reply.
func getJSON(apiURL func() string, path string, params map[string]string) error {
	q := url.Values{}
	if params["correlationId"] == "" {
		params["correlationId"] = uuid.NewString()
	}
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	resp, err := http.Get(apiURL() + path + "?" + q.Encode())
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Printf("status: %s\n%s\n", resp.Status, out)
	return nil
}
