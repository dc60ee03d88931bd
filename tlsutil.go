package main

import (
	"crypto/tls"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// keypairReloader serves the metrics certificate and swaps it on SIGHUP.
type keypairReloader struct {
	certMu   sync.RWMutex
	cert     *tls.Certificate
	certPath string
	keyPath  string
}

func newKeypairReloader(certPath, keyPath string) (*keypairReloader, error) {
	kpr := &keypairReloader{
		certPath: certPath,
		keyPath:  keyPath,
	}

	if err := kpr.reload(); err != nil {
		return nil, err
	}

	return kpr, nil
}

// watch reloads the keypair on every SIGHUP until the process exits.
func (kpr *keypairReloader) watch() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGHUP)

	for range c {
		logger.Infof("received SIGHUP, reloading TLS certificate and key from %q and %q", kpr.certPath, kpr.keyPath)

		if err := kpr.reload(); err != nil {
			logger.Errorf("keeping old TLS certificate because the new one could not be loaded: %s", err)
		}
	}
}

func (kpr *keypairReloader) reload() error {
	cert, err := tls.LoadX509KeyPair(kpr.certPath, kpr.keyPath)
	if err != nil {
		return err
	}

	kpr.certMu.Lock()
	defer kpr.certMu.Unlock()

	kpr.cert = &cert

	return nil
}

func (kpr *keypairReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	kpr.certMu.RLock()
	defer kpr.certMu.RUnlock()

	return kpr.cert, nil
}
