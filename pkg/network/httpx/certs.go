package httpx

import (
	"crypto/tls"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/giongto35/cloud-call/pkg/logger"
)

// CertReloader serves a TLS certificate from files and reloads it
// when the files change on disk, so renewed certificates are
// picked up without a restart.
type CertReloader struct {
	certFile string
	keyFile  string

	mu   sync.RWMutex
	cert *tls.Certificate

	watcher *fsnotify.Watcher
	done    chan struct{}
	log     *logger.Logger
}

func NewCertReloader(certFile, keyFile string, log *logger.Logger) (*CertReloader, error) {
	r := &CertReloader{certFile: certFile, keyFile: keyFile, done: make(chan struct{}), log: log}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *CertReloader) reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.cert = &cert
	r.mu.Unlock()
	return nil
}

// GetCertificate is for tls.Config.
func (r *CertReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert, nil
}

// Watch starts watching directories of the cert files.
// Directories are watched because renewals often replace files with symlinks.
func (r *CertReloader) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dirs := map[string]struct{}{filepath.Dir(r.certFile): {}, filepath.Dir(r.keyFile): {}}
	for dir := range dirs {
		if err = watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return err
		}
	}
	r.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !r.isCertFile(event.Name) || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := r.reload(); err != nil {
					r.log.Warn().Err(err).Str("file", event.Name).Msg("TLS certificate reload fail")
					continue
				}
				r.log.Info().Str("file", event.Name).Msg("TLS certificate has been reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.log.Error().Err(err).Msg("cert watcher")
			case <-r.done:
				return
			}
		}
	}()
	return nil
}

func (r *CertReloader) isCertFile(name string) bool {
	name = filepath.Clean(name)
	return name == filepath.Clean(r.certFile) || name == filepath.Clean(r.keyFile)
}

func (r *CertReloader) Close() error {
	if r.watcher == nil {
		return nil
	}
	close(r.done)
	err := r.watcher.Close()
	r.watcher = nil
	return err
}
