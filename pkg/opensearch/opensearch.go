// Package opensearch creates an OpenSearch client, checks cluster health and
// prepares indexes. The blog uses it for full-text post search.
package opensearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2"
)

type Config struct {
	Addresses  []string `env:"OPENSEARCH_ADDRESSES" envSeparator:","` // Empty disables search indexing.
	Username   string   `env:"OPENSEARCH_USERNAME"`
	Password   string   `env:"OPENSEARCH_PASSWORD"`
	Index      string   `env:"OPENSEARCH_INDEX" envDefault:"posts"`
	MaxRetries int      `env:"OPENSEARCH_MAX_RETRIES" envDefault:"3"`
}

func (c Config) Enabled() bool { return len(c.Addresses) > 0 }

var (
	ErrConnectionFailed  = errors.New("opensearch: connection failed")
	ErrHealthcheckFailed = errors.New("opensearch: healthcheck failed")
	ErrIndexSetupFailed  = errors.New("opensearch: index setup failed")
)

// New creates a client and fails unless the cluster answers the info call.
func New(ctx context.Context, cfg Config) (*opensearch.Client, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses:  cfg.Addresses,
		Username:   cfg.Username,
		Password:   cfg.Password,
		MaxRetries: cfg.MaxRetries,
	})
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	if err := Healthcheck(client)(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// Healthcheck returns a readiness probe calling the cluster info API.
func Healthcheck(client *opensearch.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		res, err := client.Info(client.Info.WithContext(ctx))
		if err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		defer res.Body.Close()

		if res.IsError() {
			return errors.Join(ErrHealthcheckFailed, fmt.Errorf("cluster info: %s", res.Status()))
		}
		return nil
	}
}

// EnsureIndex creates index with the given JSON body (settings and
// mappings) unless it already exists.
func EnsureIndex(ctx context.Context, client *opensearch.Client, index, body string) error {
	res, err := client.Indices.Exists([]string{index}, client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return errors.Join(ErrIndexSetupFailed, err)
	}
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return errors.Join(ErrIndexSetupFailed, fmt.Errorf("unexpected status %d checking index %q", res.StatusCode, index))
	}

	res, err = client.Indices.Create(index,
		client.Indices.Create.WithBody(strings.NewReader(body)),
		client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return errors.Join(ErrIndexSetupFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.Join(ErrIndexSetupFailed, fmt.Errorf("create index %q: %s", index, res.String()))
	}
	return nil
}
