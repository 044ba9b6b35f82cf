package config

// DefaultIceServer is used when the config has no ICE servers,
// a peer connection always gets at least one STUN resolver.
const DefaultIceServer = "stun:stun.l.google.com:19302"

type Webrtc struct {
	DisableDefaultInterceptors bool
	IceServers                 []IceServer
	IcePorts                   struct {
		Min uint16
		Max uint16
	}
	IceIpMap string
	LogLevel int `default:"2"`
}

type IceServer struct {
	Urls       string `json:"urls,omitempty"`
	Username   string `json:"username,omitempty"`
	Credential string `json:"credential,omitempty"`
}

func (w *Webrtc) HasPortRange() bool { return w.IcePorts.Min > 0 && w.IcePorts.Max > 0 }
func (w *Webrtc) HasIceIpMap() bool  { return w.IceIpMap != "" }

// Ice returns the list of usable ICE servers.
func (w *Webrtc) Ice() []IceServer {
	var servers []IceServer
	for _, s := range w.IceServers {
		if s.Urls != "" {
			servers = append(servers, s)
		}
	}
	if len(servers) == 0 {
		servers = append(servers, IceServer{Urls: DefaultIceServer})
	}
	return servers
}
