package dto

import "github.com/hongminglow/timecard-be/internal/models"

type AddEntryRequest struct {
	PersonName string `json:"personName" validate:"required,max=200"`
	Hours      int    `json:"hours" validate:"gte=0,lte=100000"`
	Minutes    int    `json:"minutes" validate:"gte=0,lte=59"`
}

type DeleteEntriesResponse struct {
	DeletedCount int64 `json:"deletedCount"`
}

type SavePersonRequest struct {
	PersonName string              `json:"personName" validate:"required,max=200"`
	Entries    []models.SavedEntry `json:"entries" validate:"required,min=1,dive"`
}
