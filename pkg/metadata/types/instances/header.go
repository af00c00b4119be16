package instances

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/diwise/metadata-instance-store/pkg/metadata/errors"
	"github.com/diwise/metadata-instance-store/pkg/metadata/typedefs"
)

type Status int

const (
	StatusUnknown    Status = 0
	StatusDraft      Status = 1
	StatusPrepared   Status = 2
	StatusProposed   Status = 3
	StatusApproved   Status = 4
	StatusRejected   Status = 5
	StatusActive     Status = 15
	StatusDeprecated Status = 19
	StatusOther      Status = 50
	StatusDeleted    Status = 99
)

var statusNames = map[Status]string{
	StatusUnknown:    "UNKNOWN",
	StatusDraft:      "DRAFT",
	StatusPrepared:   "PREPARED",
	StatusProposed:   "PROPOSED",
	StatusApproved:   "APPROVED",
	StatusRejected:   "REJECTED",
	StatusActive:     "ACTIVE",
	StatusDeprecated: "DEPRECATED",
	StatusOther:      "OTHER",
	StatusDeleted:    "DELETED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return statusNames[StatusUnknown]
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if strings.EqualFold(name, string(text)) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown instance status %q", string(text))
}

// Provenance tells where an instance was first created
type Provenance int

const (
	ProvenanceUnknown Provenance = iota
	ProvenanceLocalCohort
	ProvenanceExportArchive
	ProvenanceContent
	ProvenanceDeregistered
	ProvenanceConfiguration
	ProvenanceExternal
)

var provenanceNames = []string{
	"UNKNOWN", "LOCAL_COHORT", "EXPORT_ARCHIVE", "CONTENT_PACK", "DEREGISTERED_REPOSITORY", "CONFIGURATION", "EXTERNAL_SOURCE",
}

func (p Provenance) String() string {
	if p < 0 || int(p) >= len(provenanceNames) {
		return provenanceNames[ProvenanceUnknown]
	}
	return provenanceNames[p]
}

func (p Provenance) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Provenance) UnmarshalText(text []byte) error {
	idx := slices.IndexFunc(provenanceNames, func(n string) bool { return strings.EqualFold(n, string(text)) })
	if idx < 0 {
		return fmt.Errorf("unknown instance provenance %q", string(text))
	}
	*p = Provenance(idx)
	return nil
}

// InstanceAuditHeader is the common header of entities, relationships,
// classifications and proxies
type InstanceAuditHeader struct {
	Type                   typedefs.TypeReference `json:"type"`
	InstanceProvenanceType Provenance             `json:"instanceProvenanceType"`
	MetadataCollectionID   string                 `json:"metadataCollectionId,omitempty"`
	MetadataCollectionName string                 `json:"metadataCollectionName,omitempty"`
	InstanceLicense        string                 `json:"instanceLicense,omitempty"`
	CreatedBy              string                 `json:"createdBy,omitempty"`
	UpdatedBy              string                 `json:"updatedBy,omitempty"`
	MaintainedBy           []string               `json:"maintainedBy,omitempty"`
	CreateTime             time.Time              `json:"createTime"`
	UpdateTime             time.Time              `json:"updateTime"`
	Version                int64                  `json:"version"`
	Status                 Status                 `json:"status"`
	StatusOnDelete         Status                 `json:"statusOnDelete"`
}

// Clock returns the time used to stamp new and updated instances
var Clock func() time.Time = func() time.Time {
	return time.Now().UTC()
}

func newHeader(typ typedefs.TypeReference) InstanceAuditHeader {
	now := Clock()

	return InstanceAuditHeader{
		Type:                   typ,
		InstanceProvenanceType: ProvenanceLocalCohort,
		CreateTime:             now,
		UpdateTime:             now,
		Version:                1,
		Status:                 StatusActive,
	}
}

func (h *InstanceAuditHeader) IsDeleted() bool {
	return h.Status == StatusDeleted
}

// Header returns a copy of the header that shares no memory with h
func (h *InstanceAuditHeader) Header() InstanceAuditHeader {
	c := *h
	c.MaintainedBy = slices.Clone(h.MaintainedBy)
	return c
}

// touch records an update by userID. The update time never moves before the
// create time, even if the clock does.
func (h *InstanceAuditHeader) touch(userID string) {
	now := Clock()
	if now.Before(h.CreateTime) {
		now = h.CreateTime
	}

	h.Version++
	h.UpdateTime = now

	if userID != "" {
		h.UpdatedBy = userID
		if !slices.Contains(h.MaintainedBy, userID) {
			h.MaintainedBy = append(h.MaintainedBy, userID)
		}
	}
}

// Supersede stamps h as the version that follows previous. Everything that
// is fixed at creation is taken from previous.
func (h *InstanceAuditHeader) Supersede(previous InstanceAuditHeader, userID string) {
	h.Type = previous.Type
	h.InstanceProvenanceType = previous.InstanceProvenanceType
	h.MetadataCollectionID = previous.MetadataCollectionID
	h.MetadataCollectionName = previous.MetadataCollectionName
	h.CreatedBy = previous.CreatedBy
	h.CreateTime = previous.CreateTime
	h.MaintainedBy = slices.Clone(previous.MaintainedBy)
	h.Version = previous.Version

	h.touch(userID)
}

func (h *InstanceAuditHeader) checkNotDeleted(guid string) error {
	if h.IsDeleted() {
		return errors.NewInvalidInstanceError(fmt.Sprintf("instance %s is deleted", guid))
	}
	return nil
}

// UpdateStatus moves the instance to a new status. Use Delete to move an
// instance to StatusDeleted.
func (h *InstanceAuditHeader) UpdateStatus(userID string, status Status) error {
	if status == StatusDeleted {
		return errors.NewInvalidParameterError("use delete to mark an instance as deleted")
	}

	if err := h.checkNotDeleted(h.Type.Name); err != nil {
		return err
	}

	h.Status = status
	h.touch(userID)

	return nil
}

// Delete performs a soft delete that can be undone with Restore
func (h *InstanceAuditHeader) Delete(userID string) error {
	if err := h.checkNotDeleted(h.Type.Name); err != nil {
		return err
	}

	h.StatusOnDelete = h.Status
	h.Status = StatusDeleted
	h.touch(userID)

	return nil
}

func (h *InstanceAuditHeader) Restore(userID string) error {
	if !h.IsDeleted() {
		return errors.NewInvalidInstanceError("only deleted instances can be restored")
	}

	h.Status = h.StatusOnDelete
	if h.Status == StatusUnknown {
		h.Status = StatusActive
	}
	h.StatusOnDelete = StatusUnknown
	h.touch(userID)

	return nil
}
