package service

import "testing"

func TestRenderProblemText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		kidName  string
		expected string
	}{
		{
			name:     "single placeholder",
			text:     "{name} has 5 apples",
			kidName:  "Maya",
			expected: "Maya has 5 apples",
		},
		{
			name:     "repeated placeholder",
			text:     "{name} gives 2 apples away. How many does {name} have left?",
			kidName:  "Maya",
			expected: "Maya gives 2 apples away. How many does Maya have left?",
		},
		{
			name:     "no placeholder",
			text:     "A train leaves the station at 3pm",
			kidName:  "Maya",
			expected: "A train leaves the station at 3pm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RenderProblemText(tt.text, tt.kidName)
			if result != tt.expected {
				t.Errorf("RenderProblemText() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestRenderStageContent(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		aliasToName map[string]string
		expected    string
	}{
		{
			name:        "two aliases",
			content:     "Alex and Bella meet a fox",
			aliasToName: map[string]string{"Alex": "Sam", "Bella": "Noor"},
			expected:    "Sam and Noor meet a fox",
		},
		{
			name:        "no aliases present",
			content:     "The forest was quiet",
			aliasToName: map[string]string{"Alex": "Sam"},
			expected:    "The forest was quiet",
		},
		{
			name:        "empty mapping",
			content:     "Alex waved",
			aliasToName: map[string]string{},
			expected:    "Alex waved",
		},
		{
			name:        "alias inside a longer word is not replaced",
			content:     "Ben rang the Benbury bell",
			aliasToName: map[string]string{"Ben": "Ravi"},
			expected:    "Ravi rang the Benbury bell",
		},
		{
			name:    "alias substring of substituted name does not double-substitute",
			content: "Ben and Charlie crossed the bridge",
			aliasToName: map[string]string{
				"Ben":     "Bennett",
				"Charlie": "Ben",
			},
			expected: "Bennett and Ben crossed the bridge",
		},
		{
			name:        "repeated alias",
			content:     "Alex jumped. Then Alex laughed.",
			aliasToName: map[string]string{"Alex": "Sam"},
			expected:    "Sam jumped. Then Sam laughed.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RenderStageContent(tt.content, tt.aliasToName)
			if result != tt.expected {
				t.Errorf("RenderStageContent() = %q, want %q", result, tt.expected)
			}
		})
	}
}
