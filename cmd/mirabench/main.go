package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lpetrova/mira/internal/protocol"
)

type options struct {
	baseURL         string
	userID          string
	rounds          int
	listenFor       time.Duration
	roundTimeout    time.Duration
	interRoundDelay time.Duration
	texts           []string
	verbose         bool
}

type createSessionRequest struct {
	UserID string `json:"user_id,omitempty"`
	Client string `json:"client,omitempty"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

// wsEnvelope is a loose decode of every outbound server message; only the
// fields the bench inspects are kept.
type wsEnvelope struct {
	Type   string `json:"type"`
	State  string `json:"state"`
	Action string `json:"action"`
	Kind   string `json:"kind"`
	Text   string `json:"text"`
	Code   string `json:"code"`
	Detail string `json:"detail"`
	Notice string `json:"notice"`
}

var defaultUtterances = []string{
	"remind me to water the plants",
	"what did I say about the dentist",
	"note that the wifi password changed",
	"how long until my next break",
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mirabench: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "mirabench: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var cfg options
	var textsRaw string
	var listenMS int
	var roundTimeoutMS int
	var interRoundMS int

	flag.StringVar(&cfg.baseURL, "base-url", "http://127.0.0.1:8080", "mira base URL")
	flag.StringVar(&cfg.userID, "user-id", "bench-replay", "user_id used for the synthetic session")
	flag.IntVar(&cfg.rounds, "rounds", 10, "number of capture rounds to replay")
	flag.IntVar(&listenMS, "listen-ms", 250, "how long to hold the listening state per round in milliseconds")
	flag.IntVar(&roundTimeoutMS, "round-timeout-ms", 10000, "timeout waiting for each round's transcript in milliseconds")
	flag.IntVar(&interRoundMS, "inter-round-ms", 100, "delay between rounds in milliseconds")
	flag.StringVar(&textsRaw, "texts", "", "utterances the fake recognizer reports, separated by '|' (optional)")
	flag.BoolVar(&cfg.verbose, "verbose", true, "print replay progress")
	flag.Parse()

	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	if cfg.baseURL == "" {
		return options{}, fmt.Errorf("base-url is required")
	}
	if cfg.rounds <= 0 {
		return options{}, fmt.Errorf("rounds must be > 0")
	}
	if listenMS < 0 {
		listenMS = 0
	}
	if roundTimeoutMS < 1000 {
		roundTimeoutMS = 1000
	}
	if interRoundMS < 0 {
		interRoundMS = 0
	}
	cfg.listenFor = time.Duration(listenMS) * time.Millisecond
	cfg.roundTimeout = time.Duration(roundTimeoutMS) * time.Millisecond
	cfg.interRoundDelay = time.Duration(interRoundMS) * time.Millisecond

	cfg.texts = splitTexts(textsRaw)
	if len(cfg.texts) == 0 {
		cfg.texts = append([]string(nil), defaultUtterances...)
	}
	return cfg, nil
}

func splitTexts(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, "|") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func run(cfg options) error {
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Minute)
	defer cancel()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	sessionID, err := createSession(ctx, httpClient, cfg)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer func() {
		_ = endSession(context.Background(), httpClient, cfg.baseURL, sessionID)
	}()

	if cfg.verbose {
		fmt.Printf("mirabench: session=%s rounds=%d listen=%s\n", sessionID, cfg.rounds, cfg.listenFor)
	}

	wsURL, err := wsURLForSession(cfg.baseURL, sessionID)
	if err != nil {
		return fmt.Errorf("build ws URL: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("open websocket: %w", err)
	}
	defer conn.Close()

	b := &bench{
		conn:      conn,
		sessionID: sessionID,
		events:    make(chan wsEnvelope, 64),
		readErr:   make(chan error, 1),
	}
	go b.readLoop()

	var activateLatencies, finalizeLatencies []time.Duration
	for i := 0; i < cfg.rounds; i++ {
		b.deviceText = cfg.texts[i%len(cfg.texts)]

		start := time.Now()
		if err := b.sendGesture(protocol.GestureActivate); err != nil {
			return fmt.Errorf("round %d activate: %w", i+1, err)
		}
		if _, err := b.await(cfg.roundTimeout, func(env wsEnvelope) bool {
			return env.Type == string(protocol.TypeControlState) && env.State == "listening"
		}); err != nil {
			return fmt.Errorf("round %d await listening: %w", i+1, err)
		}
		activateLatencies = append(activateLatencies, time.Since(start))

		if cfg.listenFor > 0 {
			time.Sleep(cfg.listenFor)
		}

		stop := time.Now()
		if err := b.sendGesture(protocol.GestureActivate); err != nil {
			return fmt.Errorf("round %d stop: %w", i+1, err)
		}
		// The idle control_state precedes the transcript, so the transcript is
		// the round's final message.
		transcript, err := b.await(cfg.roundTimeout, func(env wsEnvelope) bool {
			return env.Type == string(protocol.TypeTranscript)
		})
		if err != nil {
			return fmt.Errorf("round %d await transcript: %w", i+1, err)
		}
		finalizeLatencies = append(finalizeLatencies, time.Since(stop))

		if cfg.verbose {
			fmt.Printf("mirabench: round %d/%d text=%q activate=%s finalize=%s\n",
				i+1, cfg.rounds, transcript.Text,
				activateLatencies[len(activateLatencies)-1].Round(time.Millisecond),
				finalizeLatencies[len(finalizeLatencies)-1].Round(time.Millisecond))
		}

		if cfg.interRoundDelay > 0 && i < cfg.rounds-1 {
			time.Sleep(cfg.interRoundDelay)
		}
	}

	printSummary("activate_to_listening", summarize(activateLatencies))
	printSummary("stop_to_transcript", summarize(finalizeLatencies))
	return nil
}

type bench struct {
	conn       *websocket.Conn
	sessionID  string
	deviceText string
	events     chan wsEnvelope
	readErr    chan error
}

func (b *bench) readLoop() {
	for {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			select {
			case b.readErr <- err:
			default:
			}
			return
		}
		var env wsEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		b.events <- env
	}
}

// await consumes server messages until pred matches. Device commands are
// answered inline so the bench doubles as the remote recognizer; all writes
// stay on the caller's goroutine.
func (b *bench) await(timeout time.Duration, pred func(wsEnvelope) bool) (wsEnvelope, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case env := <-b.events:
			if env.Type == string(protocol.TypeDeviceCommand) {
				if err := b.handleCommand(env.Action); err != nil {
					return wsEnvelope{}, err
				}
				continue
			}
			if env.Type == string(protocol.TypeCaptureError) {
				return wsEnvelope{}, fmt.Errorf("capture_error code=%s detail=%s", env.Code, env.Detail)
			}
			if pred(env) {
				return env, nil
			}
		case err := <-b.readErr:
			return wsEnvelope{}, err
		case <-timer.C:
			return wsEnvelope{}, fmt.Errorf("timeout after %s", timeout)
		}
	}
}

func (b *bench) handleCommand(action string) error {
	switch action {
	case protocol.CommandOpen:
		return b.sendDeviceEvent(protocol.DeviceKindOpened, "")
	case protocol.CommandFinalize:
		return b.sendDeviceEvent(protocol.DeviceKindTranscript, b.deviceText)
	case protocol.CommandClose:
		return nil
	default:
		return nil
	}
}

func (b *bench) sendGesture(action string) error {
	return b.conn.WriteJSON(protocol.ClientGesture{
		Type:      protocol.TypeClientGesture,
		SessionID: b.sessionID,
		Action:    action,
		TSMs:      time.Now().UnixMilli(),
	})
}

func (b *bench) sendDeviceEvent(kind, text string) error {
	return b.conn.WriteJSON(protocol.DeviceEvent{
		Type:      protocol.TypeDeviceEvent,
		SessionID: b.sessionID,
		Kind:      kind,
		Text:      text,
		TSMs:      time.Now().UnixMilli(),
	})
}

func createSession(ctx context.Context, client *http.Client, cfg options) (string, error) {
	payload, err := json.Marshal(createSessionRequest{UserID: cfg.userID, Client: "bench"})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.baseURL+"/v1/control/session", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if res.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("HTTP %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var out createSessionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.SessionID) == "" {
		return "", fmt.Errorf("missing session_id in response")
	}
	return out.SessionID, nil
}

func endSession(ctx context.Context, client *http.Client, baseURL, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/control/session/"+url.PathEscape(sessionID)+"/end", nil)
	if err != nil {
		return err
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 1<<20))
	return nil
}

func wsURLForSession(baseURL, sessionID string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported base-url scheme %q", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", fmt.Errorf("base-url host is required")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/control/session/ws"
	q := u.Query()
	q.Set("session_id", sessionID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type latencySummary struct {
	Count int
	Min   time.Duration
	Avg   time.Duration
	P50   time.Duration
	P95   time.Duration
	Max   time.Duration
}

func summarize(samples []time.Duration) latencySummary {
	if len(samples) == 0 {
		return latencySummary{}
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	return latencySummary{
		Count: len(sorted),
		Min:   sorted[0],
		Avg:   total / time.Duration(len(sorted)),
		P50:   percentile(sorted, 0.50),
		P95:   percentile(sorted, 0.95),
		Max:   sorted[len(sorted)-1],
	}
}

// percentile expects sorted input and uses the nearest-rank method.
func percentile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(q*float64(len(sorted))+0.999999) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func printSummary(stage string, s latencySummary) {
	if s.Count == 0 {
		fmt.Printf("mirabench: %-22s no samples\n", stage)
		return
	}
	fmt.Printf("mirabench: %-22s n=%d min=%s avg=%s p50=%s p95=%s max=%s\n",
		stage, s.Count,
		s.Min.Round(time.Millisecond), s.Avg.Round(time.Millisecond),
		s.P50.Round(time.Millisecond), s.P95.Round(time.Millisecond),
		s.Max.Round(time.Millisecond))
}
