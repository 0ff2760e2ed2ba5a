package application

import "github.com/pan-pacific/tracking-service/internal/domain"

// ToShipmentDTO converts a domain ShipmentRecord to ShipmentDTO
func ToShipmentDTO(record *domain.ShipmentRecord) *ShipmentDTO {
	if record == nil {
		return nil
	}

	var declared *float64
	if record.DeclaredValue != nil {
		v := *record.DeclaredValue
		declared = &v
	}

	return &ShipmentDTO{
		ID:                  record.ID,
		TrackingID:          record.TrackingID,
		CustomerName:        record.CustomerName,
		CustomerEmail:       record.CustomerEmail,
		CustomerPhone:       record.CustomerPhone,
		CustomerAddress:     record.CustomerAddress,
		Origin:              record.Origin,
		Destination:         record.Destination,
		ServiceType:         string(record.ServiceType),
		PackageDetails:      record.PackageDetails,
		Weight:              record.Weight,
		Dimensions:          ToDimensionsDTO(record.Dimensions),
		SpecialInstructions: record.SpecialInstructions,
		DeclaredValue:       declared,
		Status:              string(record.Status),
		CreatedDate:         record.CreatedDate,
		LastUpdated:         record.LastUpdated,
		EstimatedDelivery:   record.EstimatedDelivery,
		Events:              ToTimelineEventDTOs(record.Events),
	}
}

// ToShipmentDTOs converts a slice of records to ShipmentDTOs
func ToShipmentDTOs(records []*domain.ShipmentRecord) []ShipmentDTO {
	dtos := make([]ShipmentDTO, 0, len(records))
	for _, record := range records {
		if dto := ToShipmentDTO(record); dto != nil {
			dtos = append(dtos, *dto)
		}
	}
	return dtos
}

// ToDimensionsDTO converts domain Dimensions to DimensionsDTO
func ToDimensionsDTO(d domain.Dimensions) DimensionsDTO {
	return DimensionsDTO{Length: d.Length, Width: d.Width, Height: d.Height}
}

// ToTimelineEventDTO converts a domain TimelineEvent
func ToTimelineEventDTO(e domain.TimelineEvent) TimelineEventDTO {
	return TimelineEventDTO{
		Timestamp:   e.Timestamp,
		StatusLabel: e.StatusLabel,
		Location:    e.Location,
		Description: e.Description,
	}
}

// ToTimelineEventDTOs converts events, never returning nil
func ToTimelineEventDTOs(events []domain.TimelineEvent) []TimelineEventDTO {
	dtos := make([]TimelineEventDTO, len(events))
	for i, e := range events {
		dtos[i] = ToTimelineEventDTO(e)
	}
	return dtos
}

// ToStatusDisplayDTO converts display metadata
func ToStatusDisplayDTO(d domain.StatusDisplay) StatusDisplayDTO {
	return StatusDisplayDTO{Label: d.Label, Tone: d.Tone, Icon: d.Icon}
}

// ToTimelineDTO derives the display timeline and stage classification
func ToTimelineDTO(record *domain.ShipmentRecord) TimelineDTO {
	display := domain.DeriveDisplayState(record.Events)
	events := make([]DisplayEventDTO, len(display))
	for i, e := range display {
		events[i] = DisplayEventDTO{
			TimelineEventDTO: ToTimelineEventDTO(e.TimelineEvent),
			Status:           string(e.Status),
			Completed:        e.Completed,
			Current:          e.Current,
		}
	}

	classified := domain.ClassifyStages(record)
	stages := make([]StageDTO, len(classified))
	for i, s := range classified {
		stages[i] = StageDTO{Status: string(s.Status), Label: s.Label, State: string(s.State)}
	}

	return TimelineDTO{
		ShipmentID: record.ID,
		TrackingID: record.TrackingID,
		Status:     string(record.Status),
		Display:    ToStatusDisplayDTO(domain.DisplayFor(record.Status)),
		Events:     events,
		Stages:     stages,
	}
}

// ToTrackingDTO converts a lookup result
func ToTrackingDTO(record *domain.ShipmentRecord, source TrackingSourceKind) *TrackingDTO {
	return &TrackingDTO{
		Shipment: *ToShipmentDTO(record),
		Timeline: ToTimelineDTO(record),
		Source:   string(source),
	}
}

// ToDraft converts a create command to a domain draft
func ToDraft(cmd CreateShipmentCommand) domain.ShipmentDraft {
	return domain.ShipmentDraft{
		TrackingID:          cmd.TrackingID,
		CustomerName:        cmd.CustomerName,
		CustomerEmail:       cmd.CustomerEmail,
		CustomerPhone:       cmd.CustomerPhone,
		CustomerAddress:     cmd.CustomerAddress,
		Origin:              cmd.Origin,
		Destination:         cmd.Destination,
		ServiceType:         domain.ServiceType(cmd.ServiceType),
		PackageDetails:      cmd.PackageDetails,
		Weight:              cmd.Weight,
		Dimensions:          cmd.Dimensions,
		SpecialInstructions: cmd.SpecialInstructions,
		DeclaredValue:       cmd.DeclaredValue,
		EstimatedDelivery:   cmd.EstimatedDelivery,
	}
}

// ToPatch converts an update command to a domain patch
func ToPatch(cmd UpdateShipmentCommand) domain.ShipmentPatch {
	patch := domain.ShipmentPatch{
		TrackingID:          cmd.TrackingID,
		CustomerName:        cmd.CustomerName,
		CustomerEmail:       cmd.CustomerEmail,
		CustomerPhone:       cmd.CustomerPhone,
		CustomerAddress:     cmd.CustomerAddress,
		Origin:              cmd.Origin,
		Destination:         cmd.Destination,
		PackageDetails:      cmd.PackageDetails,
		Weight:              cmd.Weight,
		Dimensions:          cmd.Dimensions,
		SpecialInstructions: cmd.SpecialInstructions,
		DeclaredValue:       cmd.DeclaredValue,
		EstimatedDelivery:   cmd.EstimatedDelivery,
	}
	if cmd.ServiceType != nil {
		st := domain.ServiceType(*cmd.ServiceType)
		patch.ServiceType = &st
	}
	if cmd.Status != nil {
		s := domain.Status(*cmd.Status)
		patch.Status = &s
	}
	if cmd.StatusLabel != "" || cmd.Location != "" || cmd.Description != "" {
		patch.Event = &domain.EventDetails{
			StatusLabel: cmd.StatusLabel,
			Location:    cmd.Location,
			Description: cmd.Description,
		}
	}
	return patch
}
