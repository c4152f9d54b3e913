// Package monitor implements MonitorBasedPubSub: a differential
// file-state scanner that synthesizes Uploaded/Deleted notifications for
// FileService backends with no native event hooks. A single long-lived
// worker polls every 3s, guarded by a distributed mutex so that multiple
// process instances sharing one memory backend never double-dispatch.
package monitor

import (
	"sort"
	"time"

	"github.com/bkio/crosscloudkit/fileservice"
	"github.com/bkio/crosscloudkit/pubsub"
)

// configRecord is the JSON wire shape of fileservice.EventNotificationConfig
// as stored in the notification_events list. EventTypes is kept sorted
// so that two configs with the same logical content serialize identically,
// which is what push-if-not-exists-by-value equality depends on.
type configRecord struct {
	TopicName  string   `json:"topicName"`
	BucketName string   `json:"bucketName"`
	PathPrefix string   `json:"pathPrefix"`
	EventTypes []string `json:"eventTypes"`
}

func toRecord(cfg fileservice.EventNotificationConfig) configRecord {
	types := make([]string, 0, len(cfg.EventTypes))
	for _, t := range cfg.EventTypes {
		types = append(types, string(t))
	}
	sort.Strings(types)
	return configRecord{
		TopicName:  cfg.TopicName,
		BucketName: cfg.BucketName,
		PathPrefix: cfg.PathPrefix,
		EventTypes: types,
	}
}

func (r configRecord) valid() bool {
	return r.TopicName != "" && r.BucketName != "" && len(r.EventTypes) > 0
}

func (r configRecord) hasEventType(t pubsub.EventType) bool {
	for _, e := range r.EventTypes {
		if e == string(t) {
			return true
		}
	}
	return false
}

func (r configRecord) toConfig() fileservice.EventNotificationConfig {
	types := make([]pubsub.EventType, 0, len(r.EventTypes))
	for _, t := range r.EventTypes {
		types = append(types, pubsub.EventType(t))
	}
	return fileservice.EventNotificationConfig{
		TopicName:  r.TopicName,
		BucketName: r.BucketName,
		PathPrefix: r.PathPrefix,
		EventTypes: types,
	}
}

// fileStateEntry is the JSON wire shape of a baseline snapshot row, stored
// one list per bucket under key `file_states_{bucket}`.
type fileStateEntry struct {
	FileKey      string    `json:"fileKey"`
	LastModified time.Time `json:"lastModified"`
	Size         int64     `json:"size"`
	Exists       bool      `json:"exists"`
}

func (e fileStateEntry) toFileState() fileservice.FileState {
	return fileservice.FileState{FileKey: e.FileKey, LastModified: e.LastModified, Size: e.Size, Exists: e.Exists}
}

func fromFileState(s fileservice.FileState) fileStateEntry {
	return fileStateEntry{FileKey: s.FileKey, LastModified: s.LastModified, Size: s.Size, Exists: s.Exists}
}
