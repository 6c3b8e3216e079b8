// internal/rpc/rpc_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package rpc

import (
	"testing"

	"github.com/flybywiresim/ndterrain/internal/ndapi"
)

func TestFrameDataRequestRoundTrip(t *testing.T) {
	req := ndapi.FrameDataRequest{Side: ndapi.FO}
	data, err := EncodeFrameDataRequest(req)
	if err != nil {
		t.Fatalf("EncodeFrameDataRequest: %v", err)
	}

	kind, payload, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if kind != KindFrameDataRequest {
		t.Fatalf("kind = %v, want %v", kind, KindFrameDataRequest)
	}

	got, err := DecodeFrameDataRequest(payload)
	if err != nil {
		t.Fatalf("DecodeFrameDataRequest: %v", err)
	}
	if got != req {
		t.Fatalf("got %+v, want %+v", got, req)
	}
}

func TestFrameDataResponseRoundTrip(t *testing.T) {
	resp := ndapi.FrameDataResponse{
		Side:      ndapi.Capt,
		Timestamp: 1234567,
		Thresholds: ndapi.Thresholds{
			MinElevation: 100, MaxElevation: 5000, MaxElevationIsWarning: true,
		},
		Frames: [][]byte{{1, 2, 3}, {4, 5}},
	}
	data, err := EncodeFrameDataResponse(resp)
	if err != nil {
		t.Fatalf("EncodeFrameDataResponse: %v", err)
	}

	kind, payload, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if kind != KindFrameDataResponse {
		t.Fatalf("kind = %v, want %v", kind, KindFrameDataResponse)
	}

	got, err := DecodeFrameDataResponse(payload)
	if err != nil {
		t.Fatalf("DecodeFrameDataResponse: %v", err)
	}
	if got.Side != resp.Side || got.Timestamp != resp.Timestamp || len(got.Frames) != 2 {
		t.Fatalf("got %+v, want %+v", got, resp)
	}
}

func TestShutdownRequestRoundTrip(t *testing.T) {
	data, err := EncodeShutdownRequest()
	if err != nil {
		t.Fatalf("EncodeShutdownRequest: %v", err)
	}
	kind, _, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if kind != KindShutdownRequest {
		t.Fatalf("kind = %v, want %v", kind, KindShutdownRequest)
	}
}
