package config

import "github.com/spf13/pflag"

type Version int

type Server struct {
	Address string `default:":3000"`
	Https   bool
	Tls     struct {
		Address   string `default:":443"`
		Domain    string
		HttpsKey  string
		HttpsCert string
	}
}

func (s *Server) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&s.Address, "address", s.Address, "HTTP server address (host:port)")
	fs.BoolVar(&s.Https, "https", s.Https, "Serve over HTTPS")
	fs.StringVar(&s.Tls.Address, "httpsAddress", s.Tls.Address, "HTTPS server address (host:port)")
	fs.StringVar(&s.Tls.HttpsKey, "httpsKey", s.Tls.HttpsKey, "HTTPS key")
	fs.StringVar(&s.Tls.HttpsCert, "httpsCert", s.Tls.HttpsCert, "HTTPS chain")
	fs.StringVar(&s.Tls.Domain, "domain", s.Tls.Domain, "Domain for automatic HTTPS certificates")
}

func (s *Server) GetAddr() string {
	if s.Https {
		return s.Tls.Address
	}
	return s.Address
}

type Monitoring struct {
	Port             int `default:"6601"`
	URLPrefix        string
	MetricEnabled    bool `fig:"metric_enabled"`
	ProfilingEnabled bool `fig:"profiling_enabled"`
}

func (c *Monitoring) IsEnabled() bool { return c.MetricEnabled || c.ProfilingEnabled }

func (c *Monitoring) AddFlags(fs *pflag.FlagSet) {
	fs.IntVar(&c.Port, "monitoring.port", c.Port, "Monitoring server port")
	fs.BoolVar(&c.MetricEnabled, "monitoring.metrics", c.MetricEnabled, "Enable Prometheus metrics")
	fs.BoolVar(&c.ProfilingEnabled, "monitoring.pprof", c.ProfilingEnabled, "Enable pprof handlers")
}
