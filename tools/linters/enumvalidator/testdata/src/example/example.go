package example

type Urgency string

const (
	UrgencyHigh Urgency = "high"
	UrgencyLow  Urgency = "low"
)

type Kind string

const (
	KindGoogle Kind = "google"
)

type VerificationMethod string

const (
	VerificationMethodDirect VerificationMethod = "Direct calculation"
)

type MeetingInfo struct {
	Urgency Urgency
}

type Participant struct {
	Email string
	Kind  Kind
}

type TimezoneResult struct {
	Method VerificationMethod
}

func bad() {
	m := &MeetingInfo{}
	m.Urgency = "asap" // want "enum field Urgency assigned string literal"

	r := &TimezoneResult{}
	r.Method = "guess" // want "enum field Method assigned string literal"

	_ = Participant{Email: "a@example.com", Kind: "outlook"} // want "enum field Kind assigned string literal"
}

func good() {
	m := &MeetingInfo{}
	m.Urgency = UrgencyHigh

	r := &TimezoneResult{Method: VerificationMethodDirect}
	_ = r

	_ = Participant{Email: "a@example.com", Kind: KindGoogle}
}

func alsoGood() {
	// Variable, not literal
	urgency := UrgencyLow
	m := &MeetingInfo{Urgency: urgency}
	_ = m
}
