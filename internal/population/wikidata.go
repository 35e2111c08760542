package population

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/place-density/internal/domain/repository"
)

// NullValue marks a wikidata id that has no population claim, so repeated
// runs do not query it again.
const NullValue = "null"

type wikidataClient struct {
	httpClient *http.Client
	endpoint   string
	logger     *zap.Logger
}

// NewWikidataClient creates a SPARQL client for the Wikidata query service.
func NewWikidataClient(endpoint string, logger *zap.Logger) repository.PopulationRepository {
	return &wikidataClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		endpoint: endpoint,
		logger:   logger,
	}
}

type sparqlResponse struct {
	Results struct {
		Bindings []struct {
			Place struct {
				Value string `json:"value"`
			} `json:"place"`
			Population struct {
				Value string `json:"value"`
			} `json:"population"`
		} `json:"bindings"`
	} `json:"results"`
}

// FetchPopulations queries the population claim (P1082) for the given
// wikidata ids. Ids with no claim are returned with the null marker so the
// caller can cache the negative result.
func (c *wikidataClient) FetchPopulations(ctx context.Context, ids []string) (map[string]string, error) {
	populations := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return populations, nil
	}

	values := make([]string, len(ids))
	for i, id := range ids {
		values[i] = "wd:" + id
	}
	query := fmt.Sprintf(
		"SELECT ?place ?population WHERE { VALUES ?place { %s } ?place wdt:P1082 ?population . }",
		strings.Join(values, " "),
	)

	endpoint := fmt.Sprintf("%s?format=json&query=%s", c.endpoint, url.QueryEscape(query))

	c.logger.Debug("Calling Wikidata query service",
		zap.Int("ids_count", len(ids)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logger.Error("Failed to create request", zap.Error(err))
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/sparql-results+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to execute request", zap.Error(err))
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("Wikidata query service returned error",
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, fmt.Errorf("wikidata query error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var sparqlResp sparqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&sparqlResp); err != nil {
		c.logger.Error("Failed to decode response", zap.Error(err))
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	for _, binding := range sparqlResp.Results.Bindings {
		// entity URIs look like http://www.wikidata.org/entity/Q64
		segments := strings.Split(binding.Place.Value, "/")
		id := segments[len(segments)-1]
		populations[id] = binding.Population.Value
	}

	for _, id := range ids {
		if _, ok := populations[id]; !ok {
			populations[id] = NullValue
		}
	}

	c.logger.Debug("Wikidata lookup successful",
		zap.Int("resolved", len(sparqlResp.Results.Bindings)),
		zap.Int("missing", len(ids)-len(sparqlResp.Results.Bindings)))

	return populations, nil
}
