package model

import "time"

// GeoPoint 对应 Elasticsearch 的 geo_point 字段。
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// OrganizationDocument 定义了存储在 Elasticsearch 中的组织读模型。
// 它只是关系库的投影，任何写操作都以关系库为准。
type OrganizationDocument struct {
	ID            uint      `json:"id"`
	Name          string    `json:"name"`
	BuildingID    *uint     `json:"building_id,omitempty"`
	Address       string    `json:"address,omitempty"`
	Location      *GeoPoint `json:"location,omitempty"`
	Phones        []string  `json:"phones"`
	ActivityIDs   []uint    `json:"activity_ids"`
	ActivityNames []string  `json:"activity_names"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewOrganizationDocument 从已预加载关联的组织构建索引文档。
func NewOrganizationDocument(org *Organization) OrganizationDocument {
	doc := OrganizationDocument{
		ID:            org.ID,
		Name:          org.Name,
		BuildingID:    org.BuildingID,
		Phones:        make([]string, 0, len(org.Phones)),
		ActivityIDs:   make([]uint, 0, len(org.Activities)),
		ActivityNames: make([]string, 0, len(org.Activities)),
		UpdatedAt:     org.UpdatedAt,
	}
	if org.Building != nil {
		doc.Address = org.Building.Address
		doc.Location = &GeoPoint{Lat: org.Building.Latitude, Lon: org.Building.Longitude}
	}
	for _, p := range org.Phones {
		doc.Phones = append(doc.Phones, p.Number)
	}
	for _, a := range org.Activities {
		doc.ActivityIDs = append(doc.ActivityIDs, a.ID)
		doc.ActivityNames = append(doc.ActivityNames, a.Name)
	}
	return doc
}
