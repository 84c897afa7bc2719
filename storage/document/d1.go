package document

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	cloudflare "github.com/cloudflare/cloudflare-go/v6"
	cfd1 "github.com/cloudflare/cloudflare-go/v6/d1"
	"github.com/cloudflare/cloudflare-go/v6/option"

	"github.com/indieinfra/plaza/asset"
	"github.com/indieinfra/plaza/config"
	storageutil "github.com/indieinfra/plaza/storage/util"
)

// D1Store implements Store using Cloudflare D1 via the HTTP API.
// It mirrors the schema of SQLStore to keep parity across backends.
type D1Store struct {
	cfg    *config.D1DocumentStrategy
	client *cloudflare.Client
	table  string
	now    func() time.Time
}

// NewD1Store builds a store and ensures the schema exists.
func NewD1Store(cfg *config.D1DocumentStrategy) (*D1Store, error) {
	return newD1StoreWithClient(cfg, nil)
}

// newD1StoreWithClient lets tests point the store at an httptest server.
func newD1StoreWithClient(cfg *config.D1DocumentStrategy, httpClient *http.Client) (*D1Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("documents d1 config is nil")
	}

	prefix := "plaza"
	if cfg.TablePrefix != nil {
		prefix = *cfg.TablePrefix
	}

	store := &D1Store{
		cfg:    cfg,
		client: buildD1Client(cfg, httpClient),
		table:  storageutil.DeriveTableName(prefix, "documents"),
		now:    time.Now,
	}

	if err := store.initSchema(context.Background()); err != nil {
		return nil, err
	}

	return store, nil
}

func buildD1Client(cfg *config.D1DocumentStrategy, httpClient *http.Client) *cloudflare.Client {
	opts := []option.RequestOption{option.WithAPIToken(strings.TrimSpace(cfg.APIToken))}

	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	if base := strings.TrimSpace(cfg.Endpoint); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}

	return cloudflare.NewClient(opts...)
}

// initSchema doubles as a connectivity and credentials check.
func (ds *D1Store) initSchema(ctx context.Context) error {
	if _, err := ds.executeQuery(ctx, ds.schemaQuery(), nil); err != nil {
		return fmt.Errorf("d1 initialization failed (check account_id, database_id, and api_token): %w", err)
	}
	return nil
}

func (ds *D1Store) schemaQuery() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
kind TEXT NOT NULL,
id TEXT NOT NULL,
owner_id TEXT NOT NULL,
doc TEXT NOT NULL,
updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
PRIMARY KEY (kind, id)
)`, ds.table)
}

func (ds *D1Store) insertQuery() string {
	return fmt.Sprintf("INSERT INTO %s (kind, id, owner_id, doc, updated_at) VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)", ds.table)
}

func (ds *D1Store) selectQuery() string {
	return fmt.Sprintf("SELECT doc FROM %s WHERE kind = ? AND id = ? LIMIT 1", ds.table)
}

// The D1 HTTP API has no interactive transactions. The update is guarded by the previous
// updated_at value so a concurrent writer makes it match nothing instead of clobbering.
func (ds *D1Store) updateMediaQuery() string {
	return fmt.Sprintf("UPDATE %s SET doc = ?, updated_at = CURRENT_TIMESTAMP WHERE kind = ? AND id = ? AND json_extract(doc, '$.updated_at') = ? RETURNING id", ds.table)
}

func (ds *D1Store) deleteQuery() string {
	return fmt.Sprintf("DELETE FROM %s WHERE kind = ? AND id = ? RETURNING id", ds.table)
}

func (ds *D1Store) Create(ctx context.Context, doc *Document) error {
	if err := checkIdentity(doc); err != nil {
		return err
	}

	now := ds.now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	_, err = ds.executeQuery(ctx, ds.insertQuery(), []any{string(doc.Kind), doc.ID, doc.OwnerID, string(payload)})
	return err
}

func (ds *D1Store) Get(ctx context.Context, kind Kind, id string) (*Document, error) {
	rows, err := ds.executeQuery(ctx, ds.selectQuery(), []any{string(kind), id})
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	raw, ok := rows[0]["doc"].(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("doc column missing or not a string")
	}

	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

func (ds *D1Store) SetMedia(ctx context.Context, kind Kind, id string, field string, ref asset.Reference) error {
	doc, err := ds.Get(ctx, kind, id)
	if err != nil {
		return err
	}

	previous, err := json.Marshal(doc.UpdatedAt)
	if err != nil {
		return err
	}

	doc.setMedia(field, ref, ds.now().UTC())

	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	rows, err := ds.executeQuery(ctx, ds.updateMediaQuery(), []any{string(payload), string(kind), id, strings.Trim(string(previous), `"`)})
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		return fmt.Errorf("%s %q was modified concurrently", kind, id)
	}

	return nil
}

func (ds *D1Store) Delete(ctx context.Context, kind Kind, id string) error {
	rows, err := ds.executeQuery(ctx, ds.deleteQuery(), []any{string(kind), id})
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		return ErrNotFound
	}

	return nil
}

// executeQuery sends a SQL query to the D1 database and returns the result rows.
// Returns nil rows (no error) when the query succeeds but produces no results.
func (ds *D1Store) executeQuery(ctx context.Context, sql string, params []any) ([]map[string]any, error) {
	body := cfd1.DatabaseQueryParamsBodyD1SingleQuery{Sql: cloudflare.F(sql)}
	if len(params) > 0 {
		body.Params = cloudflare.F(convertParams(params))
	}

	resp, err := ds.client.D1.Database.Query(ctx, ds.cfg.DatabaseID, cfd1.DatabaseQueryParams{
		AccountID: cloudflare.F(strings.TrimSpace(ds.cfg.AccountID)),
		Body:      body,
	})
	if err != nil {
		return nil, err
	}

	if resp == nil || len(resp.Result) == 0 {
		return nil, nil
	}

	result := resp.Result[0]
	if !result.Success {
		return nil, fmt.Errorf("d1 query execution failed")
	}

	rows := make([]map[string]any, 0, len(result.Results))
	for _, r := range result.Results {
		m, ok := r.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unexpected row type %T", r)
		}
		rows = append(rows, m)
	}

	return rows, nil
}

// convertParams converts query parameters to D1's string-based parameter format.
func convertParams(params []any) []string {
	if len(params) == 0 {
		return nil
	}

	out := make([]string, 0, len(params))
	for _, p := range params {
		switch v := p.(type) {
		case bool:
			if v {
				out = append(out, "1")
			} else {
				out = append(out, "0")
			}
		default:
			out = append(out, fmt.Sprint(p))
		}
	}

	return out
}
