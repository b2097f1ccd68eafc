// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package probe

import (
	"bytes"
	"crypto/hmac"
	"crypto/md5"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"layeh.com/radius"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/eap"
)

const (
	attrVendorSpecific       = radius.Type(26)
	attrEAPMessage           = radius.Type(79)
	attrMessageAuthenticator = radius.Type(80)
	attrOperatorName         = radius.Type(126)

	// maxAttrLen is the largest RADIUS attribute value.
	maxAttrLen = 253
)

const (
	eapCodeRequest  = 1
	eapCodeResponse = 2
	eapCodeSuccess  = 3
	eapCodeFailure  = 4

	eapTypeNotification = 2
)

const (
	tlsFlagLengthIncluded = 1 << 7
	tlsFlagMoreFragments  = 1 << 6
	tlsFlagStart          = 1 << 5
)

var (
	errShortEAP     = errors.New("probe: short EAP message")
	errTruncatedEAP = errors.New("probe: truncated EAP message")
	errEAPCode      = errors.New("probe: unsupported EAP code")
	errNoEAPMessage = errors.New("probe: missing EAP-Message attribute")
)

// eapPacket is an EAP packet (RFC 3748) with the EAP-TLS header fields of
// RFC 5216.
type eapPacket struct {
	Code       uint8
	Identifier uint8
	Type       uint8
	Flags      uint8
	// TLSLength is the total TLS message length when the L flag is set.
	TLSLength int
	Data      []byte
}

func (m *eapPacket) marshal() ([]byte, error) {
	payload := make([]byte, 0, 6+len(m.Data))

	switch m.Code {
	case eapCodeRequest, eapCodeResponse:
		payload = append(payload, m.Type)
		if m.Type == eap.TypeTLS {
			payload = append(payload, m.Flags)
			if m.Flags&tlsFlagLengthIncluded != 0 {
				payload = binary.BigEndian.AppendUint32(payload, uint32(m.TLSLength))
			}
		}
		payload = append(payload, m.Data...)
	case eapCodeSuccess, eapCodeFailure:
	default:
		return nil, errEAPCode
	}

	total := 4 + len(payload)
	if total > 0xffff {
		return nil, fmt.Errorf("probe: EAP message of %d bytes too long", total)
	}

	b := make([]byte, 4, total)
	b[0] = m.Code
	b[1] = m.Identifier
	binary.BigEndian.PutUint16(b[2:], uint16(total))
	return append(b, payload...), nil
}

func parseEAP(raw []byte) (*eapPacket, error) {
	if len(raw) < 4 {
		return nil, errShortEAP
	}
	length := int(binary.BigEndian.Uint16(raw[2:4]))
	if length < 4 || length > len(raw) {
		return nil, errTruncatedEAP
	}

	msg := &eapPacket{Code: raw[0], Identifier: raw[1]}
	payload := raw[4:length]

	switch msg.Code {
	case eapCodeRequest, eapCodeResponse:
		if len(payload) == 0 {
			return nil, errShortEAP
		}
		msg.Type, payload = payload[0], payload[1:]
		if msg.Type == eap.TypeTLS {
			if len(payload) == 0 {
				return nil, errShortEAP
			}
			msg.Flags, payload = payload[0], payload[1:]
			if msg.Flags&tlsFlagLengthIncluded != 0 {
				if len(payload) < 4 {
					return nil, errShortEAP
				}
				msg.TLSLength = int(binary.BigEndian.Uint32(payload[:4]))
				payload = payload[4:]
			}
		}
		msg.Data = slices.Clone(payload)
	case eapCodeSuccess, eapCodeFailure:
	default:
		return nil, errEAPCode
	}
	return msg, nil
}

// setEAP replaces the EAP-Message attributes of p with msg, split into
// attribute sized chunks.
func setEAP(p *radius.Packet, msg *eapPacket) error {
	raw, err := msg.marshal()
	if err != nil {
		return err
	}

	p.Attributes.Del(attrEAPMessage)
	for chunk := range slices.Chunk(raw, maxAttrLen) {
		p.Attributes.Add(attrEAPMessage, radius.Attribute(slices.Clone(chunk)))
	}
	return nil
}

// getEAP concatenates the EAP-Message attributes of p.
func getEAP(p *radius.Packet) ([]byte, error) {
	var buf bytes.Buffer
	for _, avp := range p.Attributes {
		if avp.Type == attrEAPMessage {
			buf.Write(avp.Attribute)
		}
	}
	if buf.Len() == 0 {
		return nil, errNoEAPMessage
	}
	return buf.Bytes(), nil
}

// signRequest sets the Message-Authenticator (RFC 3579) of an
// Access-Request.
func signRequest(p *radius.Packet) error {
	p.Attributes.Set(attrMessageAuthenticator, make(radius.Attribute, md5.Size))
	raw, err := p.MarshalBinary()
	if err != nil {
		return err
	}
	mac := hmac.New(md5.New, p.Secret)
	mac.Write(raw)
	p.Attributes.Set(attrMessageAuthenticator, mac.Sum(nil))
	return nil
}

// wireLength is the encoded size of p.
func wireLength(p *radius.Packet) int {
	n := 20
	for _, avp := range p.Attributes {
		n += 2 + len(avp.Attribute)
	}
	return n
}

// tlsReassembler joins fragmented EAP-TLS messages.
type tlsReassembler struct {
	buf      []byte
	expected int
}

// add appends a fragment. It reports whether the message is complete and
// returns it when so.
func (a *tlsReassembler) add(msg *eapPacket) (bool, []byte, error) {
	if msg.Flags&tlsFlagLengthIncluded != 0 && len(a.buf) == 0 {
		a.expected = msg.TLSLength
	}
	a.buf = append(a.buf, msg.Data...)

	if msg.Flags&tlsFlagMoreFragments != 0 {
		return false, nil, nil
	}

	if a.expected > 0 && len(a.buf) < a.expected {
		err := fmt.Errorf("probe: incomplete EAP-TLS message (have %d, want %d)", len(a.buf), a.expected)
		a.reset()
		return false, nil, err
	}

	out := slices.Clone(a.buf)
	a.reset()
	return true, out, nil
}

func (a *tlsReassembler) reset() {
	a.buf = a.buf[:0]
	a.expected = 0
}
