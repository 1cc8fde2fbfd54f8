package matching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ridenav/rideengine/pkg/concurrent"
	"github.com/ridenav/rideengine/pkg/datastructure"
	"github.com/ridenav/rideengine/pkg/geo"
	"github.com/ridenav/rideengine/pkg/util"
)

var (
	ErrMissingAccessToken = errors.New("map matching access token is blank")
	ErrNotEnoughPoints    = errors.New("map matching needs at least 2 trace points")
)

const (
	// the remote service bounds request size
	maxPointsPerRequest = 100
	// above this the whole trace is returned unmatched instead of hammering the api
	maxTracePoints = 10000
	// a snapped location further than this from the recorded point is ignored,
	// so the service can never move the route away from where the rider rode
	maxSnapDistanceMeters = 25.0

	maxConcurrentRequests = 6

	connectTimeout = 10 * time.Second
	requestTimeout = 30 * time.Second
)

// ProgressFunc reports completed/total chunks in completion order.
type ProgressFunc func(done, total int)

// Client matches a recorded trace against the road network via a remote
// map-matching service. The service is optional enrichment: every failure
// path degrades to the original trace instead of propagating.
type Client struct {
	baseURL     string
	profile     string
	accessToken string
	httpClient  *http.Client
	retry       RetryPolicy
}

func NewClient(baseURL, profile, accessToken string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		profile:     profile,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: connectTimeout,
				}).DialContext,
			},
		},
		retry: DefaultRetryPolicy(),
	}
}

type chunkResult struct {
	index        int
	points       []datastructure.Coordinate
	instructions []datastructure.Instruction
}

// Match snaps the trace in chunks of maxPointsPerRequest coordinates with at
// most maxConcurrentRequests requests in flight, and reassembles the results
// in original order.
func (c *Client) Match(ctx context.Context, trace []datastructure.Coordinate,
	progress ProgressFunc) (datastructure.MatchedRoute, error) {
	if strings.TrimSpace(c.accessToken) == "" {
		return datastructure.MatchedRoute{}, ErrMissingAccessToken
	}
	if len(trace) < 2 {
		return datastructure.MatchedRoute{}, ErrNotEnoughPoints
	}

	if len(trace) > maxTracePoints {
		log.Printf("trace has %d points (> %d), skipping map matching", len(trace), maxTracePoints)
		return datastructure.MatchedRoute{SnappedPoints: copyCoords(trace)}, nil
	}

	chunks := chunkTrace(trace, maxPointsPerRequest)
	totalChunks := len(chunks)

	numWorkers := maxConcurrentRequests
	if totalChunks < numWorkers {
		numWorkers = totalChunks
	}

	workers := concurrent.NewWorkerPool[concurrent.MatchChunkParam, chunkResult](numWorkers, totalChunks)
	for i, chunk := range chunks {
		workers.AddJob(concurrent.NewMatchChunkParam(i, chunk))
	}
	workers.Close()

	var done int64
	workers.Start(func(job concurrent.MatchChunkParam) chunkResult {
		result := c.matchChunk(ctx, job, totalChunks)
		if progress != nil {
			progress(int(atomic.AddInt64(&done, 1)), totalChunks)
		}
		return result
	})
	workers.Wait()

	results := make([]chunkResult, 0, totalChunks)
	for result := range workers.CollectResults() {
		results = append(results, result)
	}
	// chunks finish in arbitrary order, the route must not
	sort.Slice(results, func(i, j int) bool {
		return results[i].index < results[j].index
	})

	matched := datastructure.MatchedRoute{
		SnappedPoints: make([]datastructure.Coordinate, 0, len(trace)),
		Instructions:  make([]datastructure.Instruction, 0),
	}
	for _, result := range results {
		matched.SnappedPoints = append(matched.SnappedPoints, result.points...)
		matched.Instructions = append(matched.Instructions, result.instructions...)
	}

	if len(matched.SnappedPoints) < 2 {
		return datastructure.MatchedRoute{SnappedPoints: copyCoords(trace)}, nil
	}

	return matched, nil
}

// chunkTrace splits the trace into consecutive non-overlapping windows of at
// most size points.
func chunkTrace(trace []datastructure.Coordinate, size int) [][]datastructure.Coordinate {
	chunks := make([][]datastructure.Coordinate, 0, (len(trace)+size-1)/size)
	for start := 0; start < len(trace); start += size {
		end := start + size
		if end > len(trace) {
			end = len(trace)
		}
		chunks = append(chunks, trace[start:end])
	}
	return chunks
}

// matchChunk matches one chunk with per-chunk retry. When every attempt is
// exhausted the original sub-trace is kept: one bad chunk must not fail the
// whole route.
func (c *Client) matchChunk(ctx context.Context, job concurrent.MatchChunkParam,
	totalChunks int) chunkResult {
	var response matchResponse

	err := c.retry.Do(ctx, func() error {
		var opErr error
		response, opErr = c.requestMatch(ctx, job.Points)
		return opErr
	})
	if err != nil {
		log.Printf("map matching chunk %d degraded to recorded trace: %v", job.Index, err)
		return chunkResult{index: job.Index, points: copyCoords(job.Points)}
	}

	if len(response.Tracepoints) != len(job.Points) {
		log.Printf("map matching chunk %d returned %d tracepoints for %d points, keeping recorded trace",
			job.Index, len(response.Tracepoints), len(job.Points))
		return chunkResult{index: job.Index, points: copyCoords(job.Points)}
	}

	points := make([]datastructure.Coordinate, len(job.Points))
	for i, original := range job.Points {
		points[i] = original
		tp := response.Tracepoints[i]
		if tp == nil {
			continue
		}
		snapped := datastructure.NewCoordinate(tp.Location[1], tp.Location[0])
		dist := geo.CalculateHaversineDistance(original.Lat, original.Lon, snapped.Lat, snapped.Lon)
		if dist <= maxSnapDistanceMeters {
			points[i] = snapped
		}
	}

	return chunkResult{
		index:        job.Index,
		points:       points,
		instructions: extractInstructions(response, job.Index, totalChunks),
	}
}

// extractInstructions flattens the maneuver steps of one chunk. Interior
// chunk boundaries drop their synthetic depart/arrive steps so the stitched
// route has exactly one departure and one arrival.
func extractInstructions(response matchResponse, chunkIndex, totalChunks int) []datastructure.Instruction {
	steps := make([]matchStep, 0)
	for _, matching := range response.Matchings {
		for _, leg := range matching.Legs {
			steps = append(steps, leg.Steps...)
		}
	}

	instructions := make([]datastructure.Instruction, 0, len(steps))
	for i, step := range steps {
		if step.Maneuver.Type == "depart" && i == 0 && chunkIndex > 0 {
			continue
		}
		if step.Maneuver.Type == "arrive" && i == len(steps)-1 && chunkIndex < totalChunks-1 {
			continue
		}
		instructions = append(instructions, datastructure.NewInstruction(
			step.Maneuver.Instruction,
			step.Maneuver.Type,
			step.Maneuver.Modifier,
			util.RoundFloat(step.Distance, 2),
			util.RoundFloat(step.Duration, 2),
			datastructure.NewCoordinate(step.Maneuver.Location[1], step.Maneuver.Location[0]),
		))
	}
	return instructions
}

func (c *Client) requestMatch(ctx context.Context, points []datastructure.Coordinate) (matchResponse, error) {
	requestURL := fmt.Sprintf("%s/matching/v5/%s/%s?%s",
		c.baseURL, c.profile, encodeCoordinatePath(points), c.matchQuery())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return matchResponse{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return matchResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return matchResponse{}, &StatusError{Code: resp.StatusCode}
	}

	var response matchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return matchResponse{}, fmt.Errorf("decoding map matching response: %w", err)
	}
	if response.Code != "Ok" {
		return matchResponse{}, fmt.Errorf("map matching response code %q", response.Code)
	}

	return response, nil
}

func (c *Client) matchQuery() string {
	q := url.Values{}
	q.Set("steps", "true")
	q.Set("tidy", "false")
	q.Set("access_token", c.accessToken)
	return q.Encode()
}

// encodeCoordinatePath renders points as the "lon,lat;lon,lat" request path.
func encodeCoordinatePath(points []datastructure.Coordinate) string {
	var sb strings.Builder
	for i, p := range points {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(strconv.FormatFloat(p.Lon, 'f', 6, 64))
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatFloat(p.Lat, 'f', 6, 64))
	}
	return sb.String()
}

func copyCoords(coords []datastructure.Coordinate) []datastructure.Coordinate {
	copied := make([]datastructure.Coordinate, len(coords))
	copy(copied, coords)
	return copied
}
