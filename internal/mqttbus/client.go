// Package mqttbus wraps the MQTT transport: client construction with
// password or JWT-signed authentication, and the bridge between the broker
// topics and the internal message bus.
package mqttbus

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/skyaid/missionengine/internal/config"
)

const (
	qos    = 1
	retain = false
)

// NewClient builds and connects an MQTT client. Connecting retries with
// capped backoff before giving up.
func NewClient(cfg config.MQTTConfig, deviceID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(fmt.Sprintf("missionengine-%s", deviceID)).
		SetKeepAlive(30 * time.Second).
		SetProtocolVersion(4) // MQTT 3.1.1

	if cfg.JWTKeyPath != "" {
		pass, err := signedPassword(cfg)
		if err != nil {
			return nil, err
		}
		opts.SetUsername("unused").SetPassword(pass)
	} else if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}

	if cfg.TLSEnabled {
		tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
		if cfg.CACertPath != "" {
			pem, err := os.ReadFile(cfg.CACertPath)
			if err != nil {
				return nil, errors.WithMessage(err, "reading CA certificate")
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return nil, errors.Errorf("no certificates parsed from %s", cfg.CACertPath)
			}
			tlsConfig.RootCAs = pool
		}
		opts.SetTLSConfig(tlsConfig)
	}

	client := mqtt.NewClient(opts)
	if err := connectWithRetries(client, 10); err != nil {
		return nil, err
	}

	return client, nil
}

func connectWithRetries(client mqtt.Client, retries int) error {
	backoff := time.Second
	for attempt := 1; ; attempt++ {
		log.Printf("Connecting MQTT...")
		tok := client.Connect()
		if tok.WaitTimeout(5*time.Second) && tok.Error() == nil {
			log.Printf("..Connected")
			return nil
		}
		if attempt >= retries {
			if err := tok.Error(); err != nil {
				return errors.WithMessage(err, "connecting to MQTT broker")
			}
			return errors.New("connecting to MQTT broker: timeout")
		}

		log.Printf("MQTT connect failed (%v). Retry %d/%d in %v", tok.Error(), attempt, retries, backoff)
		time.Sleep(backoff)
		backoff = backoff * 3 / 2
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
	}
}

// signedPassword generates a JWT as the MQTT password (GCP IoT style).
func signedPassword(cfg config.MQTTConfig) (string, error) {
	keyData, err := os.ReadFile(cfg.JWTKeyPath)
	if err != nil {
		return "", errors.WithMessage(err, "reading private key")
	}

	var key interface{}
	switch cfg.JWTAlgorithm {
	case "RS256":
		key, err = jwt.ParseRSAPrivateKeyFromPEM(keyData)
	case "ES256":
		key, err = jwt.ParseECPrivateKeyFromPEM(keyData)
	default:
		return "", errors.Errorf("unknown JWT algorithm: %s", cfg.JWTAlgorithm)
	}
	if err != nil {
		return "", errors.WithMessage(err, "parsing private key")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.GetSigningMethod(cfg.JWTAlgorithm), &jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		Audience:  jwt.ClaimStrings{cfg.JWTAudience},
	})

	pass, err := token.SignedString(key)
	if err != nil {
		return "", errors.WithMessage(err, "signing JWT")
	}
	return pass, nil
}
