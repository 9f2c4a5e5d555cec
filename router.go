package krrs

// SubjectProfile is the per-subject parameterization of the specialist: the
// persona prefixed onto the shared prompt template and the capabilities the
// specialist may request.
type SubjectProfile struct {
	Subject Subject
	Persona string
	Tools   []string
}

var subjectProfiles = map[Subject]SubjectProfile{
	SubjectScience: {
		Subject: SubjectScience,
		Persona: sciencePersona,
		Tools:   []string{ToolRetrieveDocuments, ToolWebSearch},
	},
	SubjectHistory: {
		Subject: SubjectHistory,
		Persona: historyPersona,
		Tools:   []string{ToolRetrieveDocuments, ToolWebSearch},
	},
	SubjectLiterature: {
		Subject: SubjectLiterature,
		Persona: literaturePersona,
		Tools:   []string{ToolRetrieveDocuments, ToolWebSearch},
	},
	SubjectGeneral: {
		Subject: SubjectGeneral,
		Persona: generalPersona,
		Tools:   []string{ToolRetrieveDocuments, ToolWebSearch},
	},
}

// Route maps a subject to its specialist profile. It is total and pure: any
// label outside the enumeration falls back to the general profile, so routing
// can never fail mid-invocation.
func Route(subject Subject) SubjectProfile {
	if p, ok := subjectProfiles[subject]; ok {
		return p
	}
	return subjectProfiles[SubjectGeneral]
}
