package storage

import (
	"encoding/json"
	"errors"
	"sort"

	"tgmdiversity/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var (
	ErrVersionMismatch = errors.New("record version mismatch")
	ErrMissingID       = errors.New("report id is required")
)

// Versioned stamps record with the current schema and codec versions.
func Versioned(record ReportRecord) ReportRecord {
	record.VersionedRecord = model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
	return record
}

func EncodeReport(record ReportRecord) ([]byte, error) {
	return json.Marshal(record)
}

func DecodeReport(data []byte) (ReportRecord, error) {
	var record ReportRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return ReportRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return ReportRecord{}, err
	}
	return record, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

// sortInfos orders newest first; equal timestamps keep the later-saved
// report first.
func sortInfos(infos []ReportInfo) {
	type indexed struct {
		info ReportInfo
		idx  int
	}
	items := make([]indexed, len(infos))
	for i := range infos {
		items[i] = indexed{info: infos[i], idx: i}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].info.CreatedAtUTC == items[j].info.CreatedAtUTC {
			return items[i].idx > items[j].idx
		}
		return items[i].info.CreatedAtUTC > items[j].info.CreatedAtUTC
	})
	for i := range items {
		infos[i] = items[i].info
	}
}
