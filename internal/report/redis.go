package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"github.com/redis/go-redis/v9"

	"pgprobe/internal/config"
	"pgprobe/pkg/types"
)

// RedisReporter keeps the latest result per target under a templated key,
// so dashboards can read current status with a single GET.
type RedisReporter struct {
	client     *redis.Client
	keyTmpl    *template.Template
	expiration time.Duration
}

func NewRedisReporter(cfg config.RedisReporterConfig) (*RedisReporter, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis connection string: %w", err)
	}

	client := redis.NewClient(opt)

	// Parse key pattern template
	tmpl, err := template.New("key").Parse(cfg.KeyPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid key pattern: %w", err)
	}

	return &RedisReporter{
		client:     client,
		keyTmpl:    tmpl,
		expiration: cfg.TTL, // 0 means keep forever
	}, nil
}

func (r *RedisReporter) Publish(ctx context.Context, res *types.Result) error {
	key, err := r.generateKey(res)
	if err != nil {
		return err
	}

	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.expiration).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (r *RedisReporter) Close() error {
	return r.client.Close()
}

func (r *RedisReporter) generateKey(res *types.Result) (string, error) {
	var buf bytes.Buffer
	if err := r.keyTmpl.Execute(&buf, res); err != nil {
		return "", fmt.Errorf("failed to execute key template: %w", err)
	}
	return buf.String(), nil
}
