package discovery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TXT record keys advertised by gateways.
const (
	TXTKeyDisplayName = "displayName"
	TXTKeyGatewayPort = "gatewayPort"
	TXTKeyTLS         = "gatewayTls"
	TXTKeyTLSSHA256   = "gatewayTlsSha256"
	TXTKeyTailnetDNS  = "tailnetDns"
	TXTKeyRole        = "role"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// GatewayInfo is the information carried in gateway TXT records.
type GatewayInfo struct {
	DisplayName    string
	Port           uint16
	TLS            bool
	TLSFingerprint string
	TailnetDNS     string
	Role           string
}

// DecodeGatewayTXT parses gateway TXT records. All keys are optional.
func DecodeGatewayTXT(txt TXTRecordMap) (*GatewayInfo, error) {
	info := &GatewayInfo{
		DisplayName: txt[TXTKeyDisplayName],
		TailnetDNS:  txt[TXTKeyTailnetDNS],
		Role:        txt[TXTKeyRole],
	}

	if s, ok := txt[TXTKeyGatewayPort]; ok && s != "" {
		p, err := strconv.ParseUint(s, 10, 16)
		if err != nil || p == 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPort, s)
		}
		info.Port = uint16(p)
	}

	switch strings.ToLower(txt[TXTKeyTLS]) {
	case "1", "true", "yes":
		info.TLS = true
	}

	if s, ok := txt[TXTKeyTLSSHA256]; ok && s != "" {
		fp, ok := NormalizeFingerprint(s)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFingerprint, s)
		}
		info.TLSFingerprint = fp
	}

	return info, nil
}

// EncodeGatewayTXT creates TXT records for info. Empty fields are omitted.
func EncodeGatewayTXT(info *GatewayInfo) TXTRecordMap {
	txt := make(TXTRecordMap)
	if info.DisplayName != "" {
		txt[TXTKeyDisplayName] = info.DisplayName
	}
	if info.Port != 0 {
		txt[TXTKeyGatewayPort] = strconv.FormatUint(uint64(info.Port), 10)
	}
	if info.TLS {
		txt[TXTKeyTLS] = "1"
	}
	if info.TLSFingerprint != "" {
		txt[TXTKeyTLSSHA256] = info.TLSFingerprint
	}
	if info.TailnetDNS != "" {
		txt[TXTKeyTailnetDNS] = info.TailnetDNS
	}
	if info.Role != "" {
		txt[TXTKeyRole] = info.Role
	}
	return txt
}

// StringsToTXTRecords converts "key=value" strings to a map. Entries
// without "=" are kept with an empty value.
func StringsToTXTRecords(records []string) TXTRecordMap {
	txt := make(TXTRecordMap, len(records))
	for _, r := range records {
		k, v, _ := strings.Cut(r, "=")
		if k == "" {
			continue
		}
		txt[k] = v
	}
	return txt
}

// TXTRecordsToStrings converts a map to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	keys := make([]string, 0, len(txt))
	for k := range txt {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+txt[k])
	}
	return out
}
