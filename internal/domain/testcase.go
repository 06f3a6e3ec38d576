package domain

// TestCase is a single generated QA test case. The JSON field names are part
// of the model contract: the completion prompt asks for exactly these keys.
type TestCase struct {
	TestID         string   `json:"test_id"`
	Feature        string   `json:"feature"`
	TestScenario   string   `json:"test_scenario"`
	TestType       string   `json:"test_type"`
	Steps          []string `json:"steps"`
	ExpectedResult string   `json:"expected_result"`
	GroundedIn     []string `json:"grounded_in"`
}

// TestCaseSet is the model's top-level response shape.
type TestCaseSet struct {
	TestCases []TestCase `json:"test_cases"`
}
