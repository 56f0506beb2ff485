package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/checkpoint"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/retry"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/utils"
)

// HTTP reads checkpoints from <base>/<seq>.json and the head from <base>/latest.
type HTTP struct {
	BaseURL string
	Client  *http.Client
	Retry   retry.Config
	Logger  *zap.Logger
}

func NewHTTP(baseURL string, logger *zap.Logger) *HTTP {
	return &HTTP{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 30 * time.Second},
		Retry:   retry.FetchConfig(),
		Logger:  logger,
	}
}

func (h *HTTP) Checkpoint(ctx context.Context, seq uint64) (*checkpoint.Checkpoint, error) {
	var cp *checkpoint.Checkpoint
	err := h.get(ctx, fmt.Sprintf("%s/%d.json", h.BaseURL, seq), func(body io.Reader) error {
		decoded, err := checkpoint.Decode(body)
		if err != nil {
			return retry.Permanent(err)
		}
		if decoded.SequenceNumber != seq {
			return retry.Permanent(fmt.Errorf("requested checkpoint %d, got %d", seq, decoded.SequenceNumber))
		}
		cp = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cp, nil
}

// Latest accepts either a bare decimal body or {"sequence_number": N}.
func (h *HTTP) Latest(ctx context.Context) (uint64, error) {
	var seq uint64
	err := h.get(ctx, h.BaseURL+"/latest", func(body io.Reader) error {
		raw, err := io.ReadAll(io.LimitReader(body, 1<<16))
		if err != nil {
			return err
		}
		text := strings.TrimSpace(string(raw))
		if n, err := strconv.ParseUint(text, 10, 64); err == nil {
			seq = n
			return nil
		}
		var head struct {
			SequenceNumber *uint64 `json:"sequence_number"`
		}
		if err := json.Unmarshal(raw, &head); err != nil || head.SequenceNumber == nil {
			return retry.Permanent(fmt.Errorf("unrecognized latest checkpoint body %q", text))
		}
		seq = *head.SequenceNumber
		return nil
	})
	return seq, err
}

func (h *HTTP) get(ctx context.Context, url string, read func(io.Reader) error) error {
	return retry.WithBackoff(ctx, h.Retry, h.Logger, "checkpoint_fetch", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		resp, err := h.Client.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = utils.DrainAndClose(resp.Body) }()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return retry.Permanent(fmt.Errorf("%w: %s", ErrNotFound, url))
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return retry.Permanent(fmt.Errorf("GET %s: status %d", url, resp.StatusCode))
		}
		return read(resp.Body)
	})
}
