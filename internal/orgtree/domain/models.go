// Package domain contains persistence models for the organization tree.
package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Organizational unit types, highest first.
const (
	TypeRepublic       = "republic"
	TypeMinistry       = "ministry"
	TypeCommittee      = "committee"
	TypeDepartment     = "department"
	TypeDivision       = "division"
	TypeAgency         = "agency"
	TypeAdministration = "administration"
)

// OrganizationUnit is a node in the institution's structural tree. Path
// materializes the ancestor-id chain ("rootID.childID.…") so subtree
// queries are a single prefix scan.
type OrganizationUnit struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	Name           string        `gorm:"type:text;not null" json:"name"`
	Type           string        `gorm:"type:text;not null" json:"type"`
	HierarchyLevel int           `gorm:"not null" json:"hierarchy_level"`
	ParentID       *snowflake.ID `gorm:"index" json:"parent_id,omitempty"`
	Path           string        `gorm:"type:text;not null;uniqueIndex:ux_organization_units_path" json:"path"`
	OrderIndex     int           `gorm:"not null;default:0" json:"order_index"`
	Active         bool          `gorm:"not null;default:true" json:"active"`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (OrganizationUnit) TableName() string { return "organization_units" }

// typeLevels bounds the hierarchy level a unit type may occupy.
var typeLevels = map[string][2]int{
	TypeRepublic:       {0, 0},
	TypeMinistry:       {1, 1},
	TypeAgency:         {1, 2},
	TypeCommittee:      {2, 3},
	TypeDepartment:     {2, 4},
	TypeAdministration: {2, 5},
	TypeDivision:       {3, 6},
}

// ValidTypeLevel reports whether the unit type may sit at the given depth.
func ValidTypeLevel(unitType string, level int) bool {
	bounds, ok := typeLevels[unitType]
	if !ok {
		return false
	}
	return level >= bounds[0] && level <= bounds[1]
}

// KnownType reports whether the unit type exists.
func KnownType(unitType string) bool {
	_, ok := typeLevels[unitType]
	return ok
}

// BuildPath appends a unit id to its parent's path. Root units start a
// fresh path of their own id.
func BuildPath(parentPath string, id snowflake.ID) string {
	if strings.TrimSpace(parentPath) == "" {
		return id.String()
	}
	return parentPath + "." + id.String()
}

// PathIDs decodes a materialized path into the ancestor chain, root
// first, including the unit itself.
func PathIDs(path string) []snowflake.ID {
	segments := strings.Split(path, ".")
	ids := make([]snowflake.ID, 0, len(segments))
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		parsed, err := strconv.ParseInt(segment, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, snowflake.ID(parsed))
	}
	return ids
}

// IsPathExtension reports whether child extends parent by exactly one
// segment.
func IsPathExtension(parentPath, childPath string) bool {
	if !strings.HasPrefix(childPath, parentPath+".") {
		return false
	}
	rest := strings.TrimPrefix(childPath, parentPath+".")
	return rest != "" && !strings.Contains(rest, ".")
}
