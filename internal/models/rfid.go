package models

import "fmt"

// RfidRecord is one authorized tag. Number is a dense 1-based sequence
// maintained by the registry.
type RfidRecord struct {
	Number int    `json:"number"`
	ID     string `json:"id"`
	UserID string `json:"userId"`
}

const UnknownUserID = "unknown"

// NormalizeRfidEntry converts one heterogeneous sync payload entry into an
// RfidRecord. Accepted shapes: a bare string id, or an object carrying the id
// under one of the legacy aliases (id, rfidId, rfid, uid) and the owner under
// userId, ownerUid or ownerId. Returns false for entries that carry no id.
func NormalizeRfidEntry(entry any) (RfidRecord, bool) {
	switch v := entry.(type) {
	case string:
		if v == "" {
			return RfidRecord{}, false
		}
		return RfidRecord{ID: v, UserID: UnknownUserID}, true
	case map[string]any:
		id := firstString(v, "id", "rfidId", "rfid", "uid")
		if id == "" {
			return RfidRecord{}, false
		}
		userID := firstString(v, "userId", "ownerUid", "ownerId")
		if userID == "" {
			userID = UnknownUserID
		}
		return RfidRecord{ID: id, UserID: userID}, true
	default:
		return RfidRecord{}, false
	}
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch val := m[k].(type) {
		case string:
			if val != "" {
				return val
			}
		case float64:
			// numeric tag ids arrive as JSON numbers from some app versions
			return fmt.Sprintf("%.0f", val)
		}
	}
	return ""
}
