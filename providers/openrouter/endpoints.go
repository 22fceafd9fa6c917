package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
)

// endpointsReply accepts both shapes the endpoints API has used:
// data as a list of endpoints, and data as an object holding an
// endpoints list.
type endpointsReply struct {
	Data json.RawMessage `json:"data"`
}

type endpointEntry struct {
	ProviderName string `json:"provider_name"`
}

type endpointsObject struct {
	Endpoints []endpointEntry `json:"endpoints"`
}

// Endpoints returns the de-duplicated, sorted names of the
// sub-providers currently able to serve the model. The lookup is a
// plain metadata call: it is not retried and errors surface to the
// caller.
func (p *Provider) Endpoints(ctx context.Context, model string) ([]string, error) {
	apiKey := p.apiKey
	if apiKey == "" {
		apiKey = os.Getenv(APIKeyEnvVar)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("required API key environment variable '%s' is not set", APIKeyEnvVar)
	}

	url := fmt.Sprintf("%s/models/%s/endpoints", p.apiBase, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching endpoints for %s: %w", model, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoints lookup for %s failed (HTTP %d)", model, resp.StatusCode)
	}

	var reply endpointsReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("error decoding endpoints reply: %w", err)
	}

	var entries []endpointEntry
	if err := json.Unmarshal(reply.Data, &entries); err != nil {
		var obj endpointsObject
		if err := json.Unmarshal(reply.Data, &obj); err != nil {
			return nil, fmt.Errorf("unrecognized endpoints reply shape for %s", model)
		}
		entries = obj.Endpoints
	}

	seen := map[string]bool{}
	var names []string
	for _, entry := range entries {
		if entry.ProviderName == "" || seen[entry.ProviderName] {
			continue
		}
		seen[entry.ProviderName] = true
		names = append(names, entry.ProviderName)
	}
	sort.Strings(names)
	return names, nil
}
