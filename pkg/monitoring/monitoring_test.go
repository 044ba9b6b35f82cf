package monitoring

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/giongto35/cloud-call/pkg/config"
	"github.com/giongto35/cloud-call/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_hits_total", Help: "hits"})
	reg.MustRegister(c)
	c.Inc()

	m, err := New(config.Monitoring{Port: 0, MetricEnabled: true, ProfilingEnabled: true}, reg, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	m.Run()
	defer func() { _ = m.Shutdown(context.Background()) }()

	tests := []struct {
		path string
		want string
	}{
		{path: "/metrics", want: "test_hits_total 1"},
		{path: "/debug/pprof/", want: "goroutine"},
	}
	for _, test := range tests {
		rez, err := http.Get("http://" + m.Addr() + test.path)
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(rez.Body)
		_ = rez.Body.Close()
		if !strings.Contains(string(body), test.want) {
			t.Errorf("%v doesn't have %v", test.path, test.want)
		}
	}
}
