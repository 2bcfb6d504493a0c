package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v9"
)

// AuditSink writes security events as documents into one index.
type AuditSink struct {
	client *elasticsearch.Client
	index  string
}

func NewAuditSink(client *elasticsearch.Client, index string) *AuditSink {
	if index == "" {
		index = "auth-audit"
	}
	return &AuditSink{client: client, index: index}
}

func (s *AuditSink) Index(ctx context.Context, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("es: marshal audit document: %w", err)
	}

	res, err := s.client.Index(
		s.index,
		bytes.NewReader(body),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("es: index %s: %w", s.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("es: index %s failed %s: %s", s.index, res.Status(), msg)
	}
	return nil
}
