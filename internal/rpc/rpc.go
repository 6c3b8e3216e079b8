// internal/rpc/rpc.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package rpc encodes and decodes the control-plane envelope
// (REQ_FRAME_DATA/RES_FRAME_DATA, REQ_SHUTDOWN) with msgpack.
package rpc

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/flybywiresim/ndterrain/internal/ndapi"
)

// MessageKind identifies which request/response shape an Envelope
// carries.
type MessageKind string

const (
	KindFrameDataRequest  MessageKind = "REQ_FRAME_DATA"
	KindFrameDataResponse MessageKind = "RES_FRAME_DATA"
	KindShutdownRequest   MessageKind = "REQ_SHUTDOWN"
)

// Envelope is the outer wire frame: Kind selects how Payload should be
// interpreted, keeping the wire format extensible without a new top-
// level message type per RPC.
type Envelope struct {
	Kind    MessageKind
	Payload []byte
}

func encodePayload(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodePayload(data []byte, v any) error {
	return msgpack.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// EncodeFrameDataRequest wraps req as a wire Envelope.
func EncodeFrameDataRequest(req ndapi.FrameDataRequest) ([]byte, error) {
	return encodeEnvelope(KindFrameDataRequest, req)
}

// EncodeFrameDataResponse wraps resp as a wire Envelope.
func EncodeFrameDataResponse(resp ndapi.FrameDataResponse) ([]byte, error) {
	return encodeEnvelope(KindFrameDataResponse, resp)
}

// EncodeShutdownRequest wraps a REQ_SHUTDOWN as a wire Envelope.
func EncodeShutdownRequest() ([]byte, error) {
	return encodeEnvelope(KindShutdownRequest, ndapi.ShutdownRequest{})
}

func encodeEnvelope(kind MessageKind, payload any) ([]byte, error) {
	p, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}
	return encodePayload(Envelope{Kind: kind, Payload: p})
}

// Decode reads the outer Envelope from data and returns its kind
// alongside the still-encoded payload, so the caller can dispatch to
// the right Decode* call below without guessing the shape up front.
func Decode(data []byte) (MessageKind, []byte, error) {
	var env Envelope
	if err := decodePayload(data, &env); err != nil {
		return "", nil, fmt.Errorf("rpc: decode envelope: %w", err)
	}
	return env.Kind, env.Payload, nil
}

// DecodeFrameDataRequest decodes an Envelope payload of kind
// KindFrameDataRequest.
func DecodeFrameDataRequest(payload []byte) (ndapi.FrameDataRequest, error) {
	var req ndapi.FrameDataRequest
	err := decodePayload(payload, &req)
	return req, err
}

// DecodeFrameDataResponse decodes an Envelope payload of kind
// KindFrameDataResponse.
func DecodeFrameDataResponse(payload []byte) (ndapi.FrameDataResponse, error) {
	var resp ndapi.FrameDataResponse
	err := decodePayload(payload, &resp)
	return resp, err
}
