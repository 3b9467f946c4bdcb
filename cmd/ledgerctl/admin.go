package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"value-ledger/pkg/response"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"
)

const (
	adminTimeout    = 30 * time.Second
	adminMaxRetries = 3
)

// adminClient calls the authority routes of a running ledger.
type adminClient struct {
	baseURL string
	key     string
	http    *http.Client
}

func newAdminClient(opts *cliOptions) (*adminClient, error) {
	if opts.authorityKey == "" {
		return nil, fmt.Errorf("an authority key is required (--authority-key or VLG_AUTHORITY_KEY)")
	}
	if _, err := url.ParseRequestURI(opts.server); err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", opts.server, err)
	}
	return &adminClient{
		baseURL: strings.TrimRight(opts.server, "/"),
		key:     opts.authorityKey,
		http:    &http.Client{Timeout: adminTimeout},
	}, nil
}

// apiError is a non-2xx reply decoded from the error envelope.
type apiError struct {
	Status int
	Body   response.ErrorResponse
}

func (e *apiError) Error() string {
	if e.Body.ErrorCode == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s: %s (%d)", e.Body.ErrorCode, e.Body.Message, e.Status)
}

// do sends the request and returns the raw data field of the success
// envelope. Transport failures and 5xx replies are retried; 4xx are not.
func (c *adminClient) do(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, err
		}
	}

	var data json.RawMessage
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("X-Authority-Key", c.key)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode >= 300 {
			apiErr := &apiError{Status: resp.StatusCode}
			_ = json.Unmarshal(raw, &apiErr.Body)
			if resp.StatusCode >= 500 {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		data = envelope.Data
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), adminMaxRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return data, nil
}

// printData re-indents a data payload onto w.
func printData(w io.Writer, data json.RawMessage) error {
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}

func reconcileCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile [account-id]",
		Short: "Replay the ledger and compare against cached balances",
		Long:  "Reconciles one account, or every account when no id is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAdminClient(opts)
			if err != nil {
				return err
			}

			var data json.RawMessage
			if len(args) == 1 {
				data, err = client.do(cmd.Context(), http.MethodGet, "/api/v1/admin/reconcile/"+url.PathEscape(args[0]), nil)
			} else {
				data, err = client.do(cmd.Context(), http.MethodPost, "/api/v1/admin/reconcile", nil)
			}
			if err != nil {
				return err
			}
			return printData(cmd.OutOrStdout(), data)
		},
	}
}

func syncPriceCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-price",
		Short: "Recompute the unit price from backing and circulating supply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAdminClient(opts)
			if err != nil {
				return err
			}
			data, err := client.do(cmd.Context(), http.MethodPost, "/api/v1/admin/economy/sync", nil)
			if err != nil {
				return err
			}
			return printData(cmd.OutOrStdout(), data)
		},
	}
}
