package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"fmt"
	mathrand "math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	storageless "github.com/MrEthical07/storageless"
	"github.com/MrEthical07/storageless/audit/redisstream"
	"github.com/MrEthical07/storageless/jwt"
)

func main() {
	var (
		tokens      = flag.Int("tokens", 10000, "number of session tokens to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (decode + round trip)")
		alg         = flag.String("alg", "hs256", "signing method: hs256 or rs256")
		keys        = flag.Int("keys", 8, "session keys per token")
		auditRedis  = flag.Bool("audit-redis", false, "stream audit events to redis")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *tokens <= 0 || *concurrency <= 0 || *ops <= 0 || *keys < 0 {
		fmt.Fprintln(os.Stderr, "tokens, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	cfg, err := configFor(*alg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	cfg.Metrics = storageless.MetricsConfig{Enabled: true, EnableLatencyHistograms: true}

	b := storageless.NewBuilder().WithConfig(cfg)

	var sink *redisstream.Sink
	if *auditRedis {
		client, cleanup, err := redisClient(*redisAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "redis: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
		sink = redisstream.NewSink(client, redisstream.Options{})
		b = b.WithAuditSink(sink)
	}

	p, err := b.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build: %v\n", err)
		os.Exit(1)
	}

	values := make([]string, *tokens)
	fmt.Printf("seeding %d %s tokens...\n", *tokens, p.Algorithm())
	startSeed := time.Now()
	for i := range values {
		v, err := issue(p, seedData(i, *keys))
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
		values[i] = v
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	decodeStats := runPhase(*ops, *concurrency, len(values), func(idx, _ int) bool {
		_, ok := p.DecodeToken(values[idx])
		return ok
	})

	name := p.CookieName()
	roundTripStats := runPhase(*ops, *concurrency, len(values), func(idx, i int) bool {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: name, Value: values[idx]})
		s := p.InitializeSessionFromRequest(r)
		if s.IsEmpty() {
			return false
		}
		s.Set("n", i)
		return p.PersistSession(s, http.Header{}) == nil
	})

	p.Close()

	fmt.Println("---- results ----")
	printStats("decode", decodeStats)
	printStats("roundtrip", roundTripStats)

	snap := p.MetricsSnapshot()
	fmt.Printf("loaded=%d issued=%d rejected=%d audit_dropped=%d\n",
		snap.Counters[storageless.MetricSessionLoaded],
		snap.Counters[storageless.MetricCookieIssued],
		snap.Counters[storageless.MetricTokenMalformed]+
			snap.Counters[storageless.MetricTokenExpired]+
			snap.Counters[storageless.MetricTokenSignatureInvalid],
		p.AuditDropped(),
	)
	if sink != nil {
		n, err := sink.Len(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "audit stream: %v\n", err)
		} else {
			fmt.Printf("audit stream %s: len=%d failed=%d\n", sink.Stream(), n, sink.Failed())
		}
	}
}

func configFor(alg string) (storageless.Config, error) {
	cfg := storageless.DefaultConfig()
	switch strings.ToLower(alg) {
	case "hs256":
		cfg.SigningKey = make([]byte, 32)
		if _, err := rand.Read(cfg.SigningKey); err != nil {
			return cfg, err
		}
	case "rs256":
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return cfg, err
		}
		pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		if err != nil {
			return cfg, err
		}
		cfg.SigningMethod = jwt.MethodRS256
		cfg.SigningKey = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
		cfg.VerificationKey = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub})
	default:
		return cfg, fmt.Errorf("unknown alg %q", alg)
	}
	return cfg, nil
}

func redisClient(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func seedData(i, keys int) map[string]any {
	data := make(map[string]any, keys+1)
	data["user"] = fmt.Sprintf("user-%d", i)
	for k := 0; k < keys; k++ {
		data[fmt.Sprintf("k%d", k)] = i*31 + k
	}
	return data
}

func issue(p *storageless.Persistence, data map[string]any) (string, error) {
	h := http.Header{}
	if err := p.PersistSession(storageless.NewSession(data), h); err != nil {
		return "", err
	}
	line := h.Get("Set-Cookie")
	v, _, _ := strings.Cut(strings.TrimPrefix(line, p.CookieName()+"="), ";")
	if v == "" {
		return "", fmt.Errorf("no session cookie in %q", line)
	}
	return v, nil
}

// runPhase runs ops calls of fn over concurrency workers. fn receives a random
// token index and the operation number and reports success. Each worker keeps
// its own samples; they are merged once the phase ends.
func runPhase(ops, concurrency, n int, fn func(idx, i int) bool) phaseStats {
	var (
		wg       sync.WaitGroup
		cursor   atomic.Int64
		failures atomic.Int64
		perW     = make([][]time.Duration, concurrency)
	)

	start := time.Now()
	for w := range perW {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := mathrand.New(mathrand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			samples := make([]time.Duration, 0, ops/concurrency+1)
			for {
				i := int(cursor.Add(1)) - 1
				if i >= ops {
					break
				}
				t0 := time.Now()
				if !fn(r.Intn(n), i) {
					failures.Add(1)
				}
				samples = append(samples, time.Since(t0))
			}
			perW[worker] = samples
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	all := make([]time.Duration, 0, ops)
	for _, samples := range perW {
		all = append(all, samples...)
	}
	return summarize(elapsed, all, failures.Load())
}

type phaseStats struct {
	elapsed       time.Duration
	ops           int
	failures      int64
	p50, p95, p99 time.Duration
	max           time.Duration
}

func (s phaseStats) throughput() float64 {
	if s.elapsed <= 0 {
		return 0
	}
	return float64(s.ops) / s.elapsed.Seconds()
}

func summarize(elapsed time.Duration, samples []time.Duration, failures int64) phaseStats {
	st := phaseStats{elapsed: elapsed, ops: len(samples), failures: failures}
	if len(samples) == 0 {
		return st
	}
	slices.Sort(samples)
	st.p50 = percentile(samples, 50)
	st.p95 = percentile(samples, 95)
	st.p99 = percentile(samples, 99)
	st.max = samples[len(samples)-1]
	return st
}

// percentile expects sorted samples.
func percentile(samples []time.Duration, p int) time.Duration {
	switch {
	case len(samples) == 0:
		return 0
	case p <= 0:
		return samples[0]
	case p >= 100:
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%-10s ops=%d failures=%d elapsed=%s ops/sec=%.0f p50=%s p95=%s p99=%s max=%s\n",
		name, s.ops, s.failures,
		s.elapsed.Round(time.Millisecond),
		s.throughput(),
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
		s.max.Round(time.Microsecond),
	)
}
