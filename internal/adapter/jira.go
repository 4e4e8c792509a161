package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"dataloom/internal/domain"
	"dataloom/pkg/logger"

	"github.com/pkg/errors"
)

const jiraPageSize = 100

// JiraPoll is the specialized external-system poller: it walks the Jira
// issue search API for the configured project, one page at a time, and
// stages each issue as its own payload.
type JiraPoll struct {
	pipeline Pipeline
	client   *http.Client
}

// NewJiraPoll creates the Jira polling adapter.
func NewJiraPoll(pipeline Pipeline) *JiraPoll {
	return &JiraPoll{
		pipeline: pipeline,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// Kind returns the adapter kind.
func (a *JiraPoll) Kind() domain.AdapterKind {
	return domain.AdapterJiraPoll
}

// Receive is not supported; Jira sources pull on their own cadence.
func (a *JiraPoll) Receive(ctx context.Context, source *domain.DataSource, body io.Reader, contentType string) (*domain.ImportSummary, error) {
	return nil, errors.Errorf("source kind %q does not accept pushed data", a.Kind())
}

// Poll pulls every page of the project's issues into one import.
func (a *JiraPoll) Poll(ctx context.Context, source *domain.DataSource) (*domain.ImportSummary, error) {
	imp, err := a.pipeline.OpenImport(ctx, source.ID)
	if err != nil {
		return nil, errors.Wrap(err, "opening import")
	}
	summary := &domain.ImportSummary{ImportID: imp.ID}

	startAt := 0
	for {
		page, total, err := a.searchPage(ctx, source, startAt)
		if err != nil {
			a.pipeline.CloseImport(ctx, imp.ID, domain.ImportError, err.Error())
			return summary, err
		}

		for _, issue := range page {
			summary.Total++
			if err := a.pipeline.Stage(ctx, imp, source, issue); err != nil {
				a.pipeline.CloseImport(ctx, imp.ID, domain.ImportError, err.Error())
				return summary, errors.Wrap(err, "staging jira issue")
			}
			summary.Staged++
		}

		startAt += len(page)
		if len(page) == 0 || startAt >= total {
			break
		}
	}

	if err := a.pipeline.CloseImport(ctx, imp.ID, domain.ImportCompleted, ""); err != nil {
		return summary, err
	}
	logger.Debugf("jira poll of %s staged %d issues", source.Name, summary.Staged)
	return summary, nil
}

// searchPage fetches one page of issues via the REST search endpoint.
func (a *JiraPoll) searchPage(ctx context.Context, source *domain.DataSource, startAt int) ([]map[string]interface{}, int, error) {
	query := url.Values{
		"jql":        {fmt.Sprintf("project=%s ORDER BY created ASC", source.Config.ProjectKey)},
		"startAt":    {fmt.Sprint(startAt)},
		"maxResults": {fmt.Sprint(jiraPageSize)},
	}
	endpoint := fmt.Sprintf("%s/rest/api/2/search?%s", source.Config.Endpoint, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, errors.Wrap(err, "creating jira request")
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(source.Config.Username, source.Config.Secret)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "searching jira at %s", source.Config.Endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, errors.Errorf("jira returned status %d", resp.StatusCode)
	}

	var page struct {
		Total  int                      `json:"total"`
		Issues []map[string]interface{} `json:"issues"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, 0, errors.Wrap(err, "decoding jira response")
	}
	return page.Issues, page.Total, nil
}
