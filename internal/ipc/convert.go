package ipc

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"wgstatusbar/internal/tunnel"
)

// Field names of the structpb payloads.
const (
	fieldInterface       = "interface"
	fieldConfig          = "config"
	fieldPublicKey       = "public_key"
	fieldStats           = "stats"
	fieldPeers           = "peers"
	fieldLatestHandshake = "latest_handshake"
	fieldRxBytes         = "rx_bytes"
	fieldTxBytes         = "tx_bytes"

	fieldName    = "name"
	fieldEnable  = "enable"
	fieldSuccess = "success"
	fieldError   = "error"
)

// inventoryToProto encodes a snapshot as name → record struct.
func inventoryToProto(inv tunnel.Inventory) (*structpb.Struct, error) {
	fields := make(map[string]any, inv.Len())
	for _, rec := range inv.Records() {
		entry := map[string]any{
			fieldInterface: rec.Interface,
			fieldConfig:    rec.Config,
		}
		if rec.PublicKey != "" {
			entry[fieldPublicKey] = rec.PublicKey
		}
		if rec.Stats != nil {
			stats := map[string]any{
				fieldPeers:   rec.Stats.Peers,
				fieldRxBytes: rec.Stats.ReceiveBytes,
				fieldTxBytes: rec.Stats.TransmitBytes,
			}
			if !rec.Stats.LatestHandshake.IsZero() {
				stats[fieldLatestHandshake] = rec.Stats.LatestHandshake.UTC().Format(time.RFC3339Nano)
			}
			entry[fieldStats] = stats
		}
		fields[rec.Name] = entry
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode inventory: %w", err)
	}
	return s, nil
}

// inventoryFromProto decodes a GetTunnels reply. Entries that are not
// structs are skipped.
func inventoryFromProto(s *structpb.Struct) tunnel.Inventory {
	records := make([]tunnel.Record, 0, len(s.GetFields()))
	for name, v := range s.GetFields() {
		entry := v.GetStructValue()
		if entry == nil {
			continue
		}
		f := entry.GetFields()
		rec := tunnel.Record{
			Name:      name,
			Interface: f[fieldInterface].GetStringValue(),
			Config:    f[fieldConfig].GetStringValue(),
			PublicKey: f[fieldPublicKey].GetStringValue(),
		}
		if st := f[fieldStats].GetStructValue(); st != nil {
			sf := st.GetFields()
			rec.Stats = &tunnel.Stats{
				Peers:         int(sf[fieldPeers].GetNumberValue()),
				ReceiveBytes:  int64(sf[fieldRxBytes].GetNumberValue()),
				TransmitBytes: int64(sf[fieldTxBytes].GetNumberValue()),
			}
			if ts := sf[fieldLatestHandshake].GetStringValue(); ts != "" {
				if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
					rec.Stats.LatestHandshake = t
				}
			}
		}
		records = append(records, rec)
	}
	return tunnel.NewInventory(records...)
}

func setTunnelRequest(name string, enable bool) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldName:   structpb.NewStringValue(name),
		fieldEnable: structpb.NewBoolValue(enable),
	}}
}

func parseSetTunnelRequest(s *structpb.Struct) (name string, enable bool) {
	f := s.GetFields()
	return f[fieldName].GetStringValue(), f[fieldEnable].GetBoolValue()
}

func setTunnelResponse(success bool, errMsg string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldSuccess: structpb.NewBoolValue(success),
		fieldError:   structpb.NewStringValue(errMsg),
	}}
}

func parseSetTunnelResponse(s *structpb.Struct) (success bool, errMsg string) {
	f := s.GetFields()
	return f[fieldSuccess].GetBoolValue(), f[fieldError].GetStringValue()
}
