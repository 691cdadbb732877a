package sanity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const apiVersion = "v2021-10-21"

// Client talks to the Sanity mutate API. Sanity documents are non-authoritative
// mirrors of relational rows; every write through this client is best-effort.
type Client struct {
	projectID  string
	dataset    string
	token      string
	httpClient *http.Client
}

func NewClient(projectID, dataset, token string) *Client {
	return &Client{
		projectID: projectID,
		dataset:   dataset,
		token:     token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewClientFromEnv builds a client from SANITY_PROJECT_ID, SANITY_DATASET and
// SANITY_API_TOKEN. Returns an error when any of them is missing so the entry
// point can decide whether to run without mirroring.
func NewClientFromEnv() (*Client, error) {
	projectID := os.Getenv("SANITY_PROJECT_ID")
	dataset := os.Getenv("SANITY_DATASET")
	token := os.Getenv("SANITY_API_TOKEN")
	if projectID == "" || dataset == "" || token == "" {
		return nil, fmt.Errorf("SANITY_PROJECT_ID, SANITY_DATASET and SANITY_API_TOKEN must be set")
	}
	return NewClient(projectID, dataset, token), nil
}

type mutation struct {
	Patch *patchMutation `json:"patch,omitempty"`
}

type patchMutation struct {
	ID  string                 `json:"id"`
	Set map[string]interface{} `json:"set,omitempty"`
}

// PatchDocument applies a partial set mutation to a document.
func (c *Client) PatchDocument(documentID string, set map[string]interface{}) error {
	body := map[string]interface{}{
		"mutations": []mutation{
			{Patch: &patchMutation{ID: documentID, Set: set}},
		},
	}
	return c.mutate(body)
}

func (c *Client) mutate(body map[string]interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("https://%s.api.sanity.io/%s/data/mutate/%s", c.projectID, apiVersion, c.dataset)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("sanity mutate returned %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}
