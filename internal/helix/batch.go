// SPDX-License-Identifier: MIT

package helix

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rewindtv/rewind/internal/log"
	"github.com/rewindtv/rewind/internal/metrics"
)

// UserBatch is the best-effort result of a bulk profile lookup. FailedIDs
// lists the IDs whose chunk request failed, so callers can distinguish
// "no such user" from "unknown due to failure".
type UserBatch struct {
	Users     []User
	FailedIDs []string
}

// LiveStatusBatch maps every requested ID to its live state. IDs belonging to
// a failed chunk default to false and are additionally listed in FailedIDs.
type LiveStatusBatch struct {
	Live      map[string]bool
	FailedIDs []string
}

// chunkIDs partitions ids into consecutive chunks of at most size.
func chunkIDs(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// idQuery builds a repeated query parameter ("id=a&id=b") from ids.
func idQuery(param string, ids []string) string {
	var sb strings.Builder
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(param)
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(id))
	}
	return sb.String()
}

// Users resolves profile metadata for an arbitrary-size ID list, splitting it
// into provider-sized chunks fetched concurrently. Chunk results are merged in
// input order regardless of network completion order. A failed chunk is logged
// and contributes only to FailedIDs; duplicates are passed through untouched.
// An empty input returns an empty batch without any network call.
func (c *Client) Users(ctx context.Context, ids []string, accessToken string) UserBatch {
	chunks := chunkIDs(ids, MaxIDsPerRequest)
	if len(chunks) == 0 {
		return UserBatch{}
	}

	results := make([][]User, len(chunks))
	failed := make([][]string, len(chunks))

	var g errgroup.Group
	for i, chunk := range chunks {
		g.Go(func() error {
			query := idQuery("id", chunk)
			u := c.baseURL + "/users?" + query
			raw, err := c.Do(ctx, u, accessToken, "users_"+query)
			if err != nil {
				c.logger.Warn().Err(err).
					Int(log.FieldChunk, i).
					Int("ids", len(chunk)).
					Msg("user batch chunk failed")
				metrics.BatchChunksTotal.WithLabelValues("users", "failed").Inc()
				failed[i] = chunk
				return nil
			}
			p, err := decodePage[User](raw)
			if err != nil {
				c.logger.Warn().Err(err).
					Int(log.FieldChunk, i).
					Msg("user batch chunk malformed")
				metrics.BatchChunksTotal.WithLabelValues("users", "failed").Inc()
				failed[i] = chunk
				return nil
			}
			metrics.BatchChunksTotal.WithLabelValues("users", "ok").Inc()
			results[i] = p.Data
			return nil
		})
	}
	_ = g.Wait()

	var batch UserBatch
	for i := range chunks {
		batch.Users = append(batch.Users, results[i]...)
		batch.FailedIDs = append(batch.FailedIDs, failed[i]...)
	}
	return batch
}

// LiveStatus determines, for each ID, whether it currently has an active live
// session. Lookups are chunked defensively at the provider limit; every input
// ID appears in the result map exactly once, with IDs from failed chunks
// explicitly defaulted to false. Liveness is best-effort, not authoritative.
func (c *Client) LiveStatus(ctx context.Context, ids []string, accessToken string) LiveStatusBatch {
	batch := LiveStatusBatch{Live: make(map[string]bool, len(ids))}
	chunks := chunkIDs(ids, MaxIDsPerRequest)
	if len(chunks) == 0 {
		return batch
	}

	type chunkResult struct {
		live   []string
		failed []string
	}
	results := make([]chunkResult, len(chunks))

	var g errgroup.Group
	for i, chunk := range chunks {
		g.Go(func() error {
			query := idQuery("user_id", chunk)
			u := c.baseURL + "/streams?" + query
			raw, err := c.Do(ctx, u, accessToken, "streams_"+query)
			if err != nil {
				c.logger.Warn().Err(err).
					Int(log.FieldChunk, i).
					Int("ids", len(chunk)).
					Msg("live status chunk failed")
				metrics.BatchChunksTotal.WithLabelValues("live_status", "failed").Inc()
				results[i].failed = chunk
				return nil
			}
			p, err := decodePage[Stream](raw)
			if err != nil {
				c.logger.Warn().Err(err).
					Int(log.FieldChunk, i).
					Msg("live status chunk malformed")
				metrics.BatchChunksTotal.WithLabelValues("live_status", "failed").Inc()
				results[i].failed = chunk
				return nil
			}
			metrics.BatchChunksTotal.WithLabelValues("live_status", "ok").Inc()
			for _, s := range p.Data {
				results[i].live = append(results[i].live, s.UserID)
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		for _, id := range res.live {
			batch.Live[id] = true
		}
		batch.FailedIDs = append(batch.FailedIDs, res.failed...)
	}
	// Every requested ID gets an entry; absence from the provider response
	// means "not live", failure means "unknown", both read as false.
	for _, id := range ids {
		if _, ok := batch.Live[id]; !ok {
			batch.Live[id] = false
		}
	}
	return batch
}
