package instances

import (
	"slices"
)

// sameAs compares every header field. Times are compared as instants.
func (h *InstanceAuditHeader) sameAs(other *InstanceAuditHeader) bool {
	return h.Type == other.Type &&
		h.InstanceProvenanceType == other.InstanceProvenanceType &&
		h.MetadataCollectionID == other.MetadataCollectionID &&
		h.MetadataCollectionName == other.MetadataCollectionName &&
		h.InstanceLicense == other.InstanceLicense &&
		h.CreatedBy == other.CreatedBy &&
		h.UpdatedBy == other.UpdatedBy &&
		slices.Equal(h.MaintainedBy, other.MaintainedBy) &&
		h.CreateTime.Equal(other.CreateTime) &&
		h.UpdateTime.Equal(other.UpdateTime) &&
		h.Version == other.Version &&
		h.Status == other.Status &&
		h.StatusOnDelete == other.StatusOnDelete
}

func (c *Classification) Equal(other *Classification) bool {
	if c == nil || other == nil {
		return c == nil && other == nil
	}

	return c.InstanceAuditHeader.sameAs(&other.InstanceAuditHeader) &&
		c.Name == other.Name &&
		c.Origin == other.Origin &&
		c.OriginGUID == other.OriginGUID &&
		c.Properties.Equal(other.Properties)
}

// Equal reports if e and other describe the same entity state. Properties
// and classifications may appear in any order.
func (e *Entity) Equal(other *Entity) bool {
	if e == nil || other == nil {
		return e == nil && other == nil
	}

	if e.GUID != other.GUID || !e.InstanceAuditHeader.sameAs(&other.InstanceAuditHeader) {
		return false
	}

	if !e.Properties.Equal(other.Properties) {
		return false
	}

	if len(e.Classifications) != len(other.Classifications) {
		return false
	}

	for _, c := range e.Classifications {
		oc, ok := other.Classification(c.Name)
		if !ok || !c.Equal(oc) {
			return false
		}
	}

	return true
}
