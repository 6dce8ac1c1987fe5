package models

import "time"

// Project represents a project in the test-management system.
type Project struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Release represents a product version in the test-management system.
type Release struct {
	ID            int       `json:"id"`
	ProjectID     int       `json:"project_id"`
	Name          string    `json:"name"`
	VersionNumber string    `json:"version_number"`
	Active        bool      `json:"active"`
	StartDate     time.Time `json:"start_date,omitempty"`
	EndDate       time.Time `json:"end_date,omitempty"`
}

// User represents a user account in the test-management system. User
// mappings are global rather than project scoped.
type User struct {
	ID       int    `json:"id"`
	UserName string `json:"user_name"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
	Active   bool   `json:"active"`
}

// CustomProperty describes a custom incident property definition, including
// the list values available when the property is a dropdown list.
type CustomProperty struct {
	ProjectID      int                   `json:"project_id"`
	PropertyNumber string                `json:"property_number"`
	Name           string                `json:"name"`
	IsList         bool                  `json:"is_list"`
	Values         []CustomPropertyValue `json:"values,omitempty"`
}

// CustomPropertyValue is one selectable value of a list custom property.
type CustomPropertyValue struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
