// ABOUTME: Last-resort values rendered when neither the API nor the cache can answer
// ABOUTME: Each constructor returns a fresh value so callers may modify it

package models

// DefaultStatus is shown when the accreditation state is unknown
func DefaultStatus() UserStatus {
	return UserStatus{
		Status:  "pending",
		Message: "No se pudo obtener el estado actual",
	}
}

// DefaultTeam is shown when team data could not be loaded
func DefaultTeam() Team {
	return Team{Name: "Error al cargar equipo", Members: []TeamMember{}}
}

// MissingTeam is shown when there is no user to look a team up for
func MissingTeam() Team {
	return Team{Name: "Equipo no encontrado", Members: []TeamMember{}}
}

// DefaultStatistics reports no attendance
func DefaultStatistics() Statistics {
	return Statistics{}
}

// DefaultHistory is an empty race list
func DefaultHistory() []HistoryEntry {
	return []HistoryEntry{}
}

// SamplePromotions are displayed when no promotion data is available at all
func SamplePromotions() []Promotion {
	return []Promotion{
		{
			ID:          "1",
			Title:       "Oferta Especial",
			Description: "2x1 en próxima fecha",
			Discount:    "50%",
			ValidUntil:  "2025-03-31",
			Type:        PromotionDiscount,
			Active:      true,
		},
		{
			ID:          "2",
			Title:       "Descuento VIP",
			Description: "Acceso preferencial al paddock",
			Discount:    "Gratis",
			ValidUntil:  "2025-04-15",
			Type:        PromotionBenefit,
			Active:      true,
		},
	}
}
