package hermes

const (
	SubjectIntakeRequest = "home.intake.request"
	SubjectIntakeStats   = "home.intake.stats"

	StreamName   = "INTAKE_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

var StreamSubjects = []string{"home.intake.>", "home.client.>", "home.caseworker.>"}

func SubjectClientAssessed(clientID string) string   { return "home.client." + clientID + ".assessed" }
func SubjectClientAssigned(clientID string) string   { return "home.client." + clientID + ".assigned" }
func SubjectClientUnassigned(clientID string) string { return "home.client." + clientID + ".unassigned" }
func SubjectClientReassessed(clientID string) string { return "home.client." + clientID + ".reassessed" }
func SubjectClientUpdated(clientID string) string    { return "home.client." + clientID + ".updated" }

func SubjectActionCreated(caseworkerID string) string {
	return "home.caseworker." + caseworkerID + ".action.created"
}
func SubjectActionCompleted(caseworkerID string) string {
	return "home.caseworker." + caseworkerID + ".action.completed"
}
