// Package topics defines the fixed category and difficulty catalogs and validates
// candidate topics against them.
package topics

// Category tags accepted on a topic.
const (
	CategoryTechnicalCoding          = "technical_coding"
	CategorySystemDesign             = "system_design"
	CategoryBehavioral               = "behavioral"
	CategoryTechnologyDeepDive       = "technology_deep_dive"
	CategoryArchitectureDecisions    = "architecture_decisions"
	CategoryDebuggingTroubleshooting = "debugging_troubleshooting"
	CategoryTestingQuality           = "testing_quality"
	CategoryDevOpsDeployment         = "devops_deployment"
)

// Difficulty tags accepted on a topic.
const (
	DifficultyJunior   = "junior"
	DifficultyMidLevel = "mid-level"
	DifficultySenior   = "senior"
	DifficultyStaff    = "staff"
)

// DifficultyMixed requests no difficulty bias.
const DifficultyMixed = "mixed"

// Entry is a catalog tag with the focus text shown to the model.
type Entry struct {
	Tag         string
	Description string
}

// Categories lists every category in prompt order.
var Categories = []Entry{
	{CategoryTechnicalCoding, "Coding challenges, algorithms, data structures"},
	{CategorySystemDesign, "Architecture decisions, scalability, distributed systems"},
	{CategoryBehavioral, "Leadership, teamwork, problem-solving approaches"},
	{CategoryTechnologyDeepDive, "Specific technology expertise and experience"},
	{CategoryArchitectureDecisions, "Technical trade-offs, design patterns, best practices"},
	{CategoryDebuggingTroubleshooting, "Problem diagnosis, error handling, performance issues"},
	{CategoryTestingQuality, "Testing strategies, QA processes, code quality"},
	{CategoryDevOpsDeployment, "CI/CD, infrastructure, monitoring, deployment strategies"},
}

// Difficulties lists every difficulty from least to most senior.
var Difficulties = []Entry{
	{DifficultyJunior, "Entry-level (0-2 years experience)"},
	{DifficultyMidLevel, "Experienced developer (3-5 years experience)"},
	{DifficultySenior, "Senior engineer (6+ years experience)"},
	{DifficultyStaff, "Staff/Principal engineer (8+ years experience)"},
}

// IsCategory reports whether tag is a known category.
func IsCategory(tag string) bool {
	return contains(Categories, tag)
}

// IsDifficulty reports whether tag is a known difficulty.
func IsDifficulty(tag string) bool {
	return contains(Difficulties, tag)
}

// IsDifficultyFocus reports whether focus is "mixed" or a known difficulty.
func IsDifficultyFocus(focus string) bool {
	return focus == DifficultyMixed || IsDifficulty(focus)
}

func contains(entries []Entry, tag string) bool {
	for _, e := range entries {
		if e.Tag == tag {
			return true
		}
	}
	return false
}
