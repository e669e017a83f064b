package models

// Default pipeline stages, in board order. Companies may configure their own list.
const (
	StageNew            = "New"
	StageScreening      = "Screening"
	StageTechnical      = "Technical"
	StageManager        = "Manager"
	StageFinal          = "Final"
	StageOffer          = "Offer"
	StageHired          = "Hired"
	StageSilverMedalist = "Silver Medalist"
	StageRejected       = "Rejected"
)

var DefaultStages = []string{
	StageNew, StageScreening, StageTechnical, StageManager, StageFinal,
	StageOffer, StageHired, StageSilverMedalist, StageRejected,
}

// ArchivedStages are the terminal columns hidden by the board's archive toggle.
var ArchivedStages = map[string]bool{
	StageHired:          true,
	StageSilverMedalist: true,
	StageRejected:       true,
}
