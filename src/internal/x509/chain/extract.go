// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509chain

import (
	"context"
	"io"
	"time"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
	x509certs "github.com/H0llyW00dzZ/eap-radius-diag/src/internal/x509/certs"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/logger"
)

// Inspector classifies server-presented chains and checks certificate
// properties.
type Inspector struct {
	// Fetcher downloads CRLs; nil reports every HTTP CDP as unreachable.
	Fetcher CRLFetcher
	// Now returns the reference time for validity checks.
	Now    func() time.Time
	Logger logger.Logger

	certs *x509certs.Certificate
}

var discard logger.Logger = logger.NewJSONLogger(io.Discard, true)

// NewInspector creates an Inspector. A nil log discards output.
func NewInspector(fetcher CRLFetcher, log logger.Logger) *Inspector {
	if log == nil {
		log = discard
	}
	return &Inspector{
		Fetcher: fetcher,
		Now:     time.Now,
		Logger:  log,
		certs:   x509certs.New(),
	}
}

func (in *Inspector) decoder() *x509certs.Certificate {
	if in.certs == nil {
		return x509certs.New()
	}
	return in.certs
}

func (in *Inspector) log() logger.Logger {
	if in.Logger == nil {
		return discard
	}
	return in.Logger
}

func (in *Inspector) now() time.Time {
	if in.Now == nil {
		return time.Now()
	}
	return in.Now()
}

// Extract splits bundle into certificates and assigns each its role.
//
// A self-signed CA that is the only entry of the bundle is the server
// itself. Any other certificate that is not a CA and not self-signed is a
// server; other self-signed certificates are roots and everything else is
// an intermediate. Intermediates are checked with CA rules and get their
// CRL attached. The first server found is checked with server rules and
// becomes [Chain.Server]. Entries that do not parse are skipped but still
// count towards the sole-entry rule.
func (in *Inspector) Extract(ctx context.Context, bundle []byte) *Chain {
	entries := in.decoder().SplitPEM(bundle)

	ch := &Chain{
		Entries:              len(entries),
		Oddities:             &diag.OdditySet{},
		IntermediateOddities: &diag.OdditySet{},
	}

	for _, entry := range entries {
		cert, err := in.decoder().Decode(entry)
		if err != nil {
			in.log().Debugf("skipping unparsable chain entry: %v", err)
			continue
		}

		selfSigned := IsSelfSigned(cert)
		var rec *Record
		switch {
		case cert.IsCA && selfSigned && len(entries) == 1:
			rec = NewRecord(entry, cert, RoleSelfSignedServer)
			ch.TotallySelfSigned = true
		case !cert.IsCA && !selfSigned:
			rec = NewRecord(entry, cert, RoleServer)
		case selfSigned:
			rec = NewRecord(entry, cert, RoleRoot)
			ch.Roots++
		default:
			rec = NewRecord(entry, cert, RoleIntermediate)
			ch.Intermediates++
			ch.IntermediateOddities.Add(in.CheckCA(ctx, rec, false)...)
		}

		if rec.Role.IsServer() {
			ch.Servers++
			if ch.Server == nil {
				ch.Server = rec
			}
		}
		ch.Records = append(ch.Records, rec)
	}

	if ch.Roots > 0 && !ch.TotallySelfSigned {
		ch.Oddities.Add(diag.OddityRootIncluded)
	}
	if ch.Servers > 1 {
		ch.Oddities.Add(diag.OddityTooManyServerCerts)
	}
	if ch.Servers == 0 {
		ch.Oddities.Add(diag.OddityNoServerCert)
	}

	if ch.Server != nil {
		ch.Oddities.Add(in.CheckServer(ctx, ch.Server)...)
	}

	return ch
}
