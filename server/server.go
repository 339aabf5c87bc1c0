package server

import (
	"fmt"
	"net"

	"crypto/tls"

	"github.com/VLM-GNESREK/verts-twmailerpro/config"
)

// Functions

// InitListener opens up the TCP socket the mail service
// accepts client sessions on. When the config supplies a
// certificate and key the listener speaks TLS with a
// hardened configuration, otherwise it stays plain text
// like the original wire protocol.
func InitListener(conf config.Server) (net.Listener, error) {

	if conf.PublicCertLoc == "" {

		listener, err := net.Listen("tcp", conf.ListenMailAddr)
		if err != nil {
			return nil, fmt.Errorf("listening for plain TCP connections failed with: %v", err)
		}

		return listener, nil
	}

	tlsConfig := &tls.Config{
		Certificates:             make([]tls.Certificate, 1),
		MinVersion:               tls.VersionTLS12,
		CurvePreferences:         []tls.CurveID{tls.CurveP521, tls.CurveP384, tls.CurveP256},
		PreferServerCipherSuites: true,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA,
			tls.TLS_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_RSA_WITH_AES_256_CBC_SHA,
		},
	}

	// Put in supplied TLS cert and key.
	var err error
	tlsConfig.Certificates[0], err = tls.LoadX509KeyPair(conf.PublicCertLoc, conf.PublicKeyLoc)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS cert and key: %v", err)
	}

	listener, err := tls.Listen("tcp", conf.ListenMailAddr, tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("listening for TLS connections failed with: %v", err)
	}

	return listener, nil
}
