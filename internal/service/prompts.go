package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shastraw-ai/clue-story/internal/models"
)

// Token budgets per prompt variant. The plot outline is deliberately terse;
// the full narrative needs room for prose.
const (
	plotMaxTokens    = 2500
	storyMaxTokens   = 5000
	problemMaxTokens = 2000
)

const (
	plotSystemPrompt    = "You create brief story outlines for parents. Follow formatting exactly."
	storySystemPrompt   = "You write children's adventure stories. Follow formatting exactly."
	problemSystemPrompt = "Generate educational puzzles for children. Respond only with valid JSON. Make problems appropriately challenging - do not make them too easy."
)

// countryGradeNotes maps ISO country codes to grade-system notes embedded in
// problem prompts. Unknown countries fall back to a US-equivalent note.
var countryGradeNotes = map[string]string{
	"US": "US grades K-12 system",
	"GB": "UK system: Reception, Years 1-13. Year 1 ≈ US Grade K, Year 7 ≈ US Grade 6",
	"CA": "Canadian grades similar to US K-12 system",
	"AU": "Australian system: Prep/Foundation, Years 1-12",
	"IN": "Indian system: Classes/Standards 1-12, LKG/UKG for kindergarten",
	"SG": "Singapore: Primary 1-6, Secondary 1-4",
	"NZ": "NZ: Years 1-13, Year 1 starts at age 5",
	"IE": "Irish system: Junior/Senior Infants, 1st-6th class (primary), 1st-6th year (secondary)",
	"PH": "Philippine K-12 system similar to US",
	"ZA": "South African Grades R-12 (R = Reception)",
}

// gradeSystemNote returns the note for a country, defaulting to US equivalents
func gradeSystemNote(countryCode string) string {
	if note, ok := countryGradeNotes[countryCode]; ok {
		return note
	}
	return "Using US grade equivalents as reference"
}

// gradeToNumber converts a grade string to a number for comparisons.
// 'K' and anything unparsable map to 0.
func gradeToNumber(grade string) int {
	if grade == "K" {
		return 0
	}
	n, err := strconv.Atoi(grade)
	if err != nil {
		return 0
	}
	return n
}

// mathConceptsForGrade returns the concept guidance block for a grade band
func mathConceptsForGrade(grade string) string {
	gradeNum := gradeToNumber(grade)

	switch {
	case gradeNum <= 2:
		return `
MATH CONCEPTS FOR THIS GRADE:
- Counting objects (up to 100 for grade 2)
- Basic addition (single digits, sums up to 20)
- Basic subtraction (single digits)
- Skip counting by 2s, 5s, 10s
- Comparing numbers (greater than, less than)
- Simple patterns
- Telling time (hours, half hours)
- Basic shapes recognition`

	case gradeNum <= 4:
		return `
MATH CONCEPTS FOR THIS GRADE:
- Multiplication facts (up to 12x12)
- Division with and without remainders
- Simple fractions (1/2, 1/3, 1/4, comparing fractions)
- Adding and subtracting fractions with same denominator
- Multi-digit addition and subtraction (with regrouping)
- Introduction to area and perimeter
- Word problems with multiple steps
- Rounding numbers
- Basic measurement conversions`

	case gradeNum <= 6:
		return `
MATH CONCEPTS FOR THIS GRADE:
- All fraction operations (add, subtract, multiply, divide fractions)
- Decimal operations (add, subtract, multiply, divide)
- Converting between fractions, decimals, and percentages
- Area and perimeter of complex shapes (triangles, parallelograms)
- Volume of rectangular prisms and cylinders
- Order of operations (PEMDAS/BODMAS)
- Introduction to negative numbers
- Ratio and proportion
- Mean, median, mode
- Coordinate graphing basics`

	default:
		return `
MATH CONCEPTS FOR THIS GRADE:
- Percentages and percentage change (discounts, interest, tax)
- Ratios and proportional reasoning
- Basic algebra (solving for x, simplifying expressions)
- Linear equations and graphing
- Geometry (angle relationships, triangle properties, circle calculations)
- Probability and statistics
- Exponents and scientific notation
- Pythagorean theorem
- Systems of equations (basic)
- Surface area and volume of 3D shapes`
	}
}

// difficultyDescriptions holds the five difficulty tier narratives
var difficultyDescriptions = map[int]string{
	1: "Difficulty 1/5: Easy but engaging - basic concepts with straightforward application. Should still require some thinking.",
	2: "Difficulty 2/5: Moderate - requires understanding of concepts and 1-2 step problem solving. Not trivial.",
	3: "Difficulty 3/5: Challenging - multi-step problems requiring careful reasoning. Should make the child think hard.",
	4: "Difficulty 4/5: Hard - complex problems that push the boundaries of grade-level understanding.",
	5: "Difficulty 5/5: Very challenging - problems at the edge of or slightly beyond grade level. Requires advanced reasoning.",
}

// difficultyDescription returns the tier narrative, defaulting to tier 3
func difficultyDescription(difficulty int) string {
	if desc, ok := difficultyDescriptions[difficulty]; ok {
		return desc
	}
	return difficultyDescriptions[3]
}

// StoryParams carries the generation parameters of one story request
type StoryParams struct {
	Subject         string // 'math' | 'reading'
	Mode            string // 'plot' | 'story'
	Role            string
	Theme           string
	QuestionsPerKid int
	Kids            []models.Kid
}

// buildPlotPrompt builds the terse plot outline prompt variant
func buildPlotPrompt(params StoryParams) string {
	aliases := kidAliases(params.Kids)
	totalStages := params.QuestionsPerKid

	return strings.TrimSpace(fmt.Sprintf(`
You are helping a parent tell a bedtime story.

Create EXACTLY %d stage outlines. Each stage should lead naturally to the next.

CHARACTERS: %s
SETTING: %s
ROLE: The children are %s

For each stage, provide a BRIEF plot outline with these elements:
- Setting/Location for this stage
- What the children encounter (magical character, obstacle, discovery)
- The challenge setup (what blocks their progress)

FORMAT:
=== STAGE X ===
• Setting: [where they are]
• Encounter: [who/what they meet]
• Challenge: [what blocks their progress]

After stage %d, add a brief conclusion.
`, totalStages, aliases, params.Theme, params.Role, totalStages))
}

// buildFullStoryPrompt builds the full narrative prompt variant
func buildFullStoryPrompt(params StoryParams) string {
	aliases := kidAliases(params.Kids)
	totalStages := params.QuestionsPerKid

	// Language level tracks the youngest kid in the request
	youngest := params.Kids[0].Grade
	for _, kid := range params.Kids[1:] {
		if gradeToNumber(kid.Grade) < gradeToNumber(youngest) {
			youngest = kid.Grade
		}
	}

	return strings.TrimSpace(fmt.Sprintf(`
You are a children's bedtime story writer.

Create a story with EXACTLY %d stages.

CHARACTERS: %s (%d children who are the heroes)

STORY:
- The children are %s exploring %s
- Each stage they encounter a magical character (wizard, fairy, talking animal, etc.)
- The magical character blocks their path and says each child must solve a puzzle to pass
- Make it exciting and adventurous

FORMAT:
- Start each stage with: === STAGE X ===
- Write 2-3 paragraphs describing the adventure and encounter
- End each stage with the magical character announcing that each child must solve their own puzzle
- Do NOT write the actual puzzles - just set up that puzzles are needed
- After stage %d, write a brief happy conclusion

EXAMPLE STAGE ENDING:
"The wise owl hooted softly. 'To cross this bridge, each of you must answer my riddle,' she said, looking at %s in turn."

Keep language appropriate for Grade %s.
`, totalStages, aliases, len(params.Kids), params.Role, params.Theme, totalStages, aliases, youngest))
}

// buildStoryPrompt selects the prompt variant for the requested mode
func buildStoryPrompt(params StoryParams) (prompt, system string, maxTokens int) {
	if params.Mode == "plot" {
		return buildPlotPrompt(params), plotSystemPrompt, plotMaxTokens
	}
	return buildFullStoryPrompt(params), storySystemPrompt, storyMaxTokens
}

// buildProblemPrompt builds the single-kid problem generation prompt.
// Problems use the {name} placeholder; sibling aliases may appear to make
// problems social.
func buildProblemPrompt(subject string, kid models.Kid, allKids []models.Kid, count int, country string) string {
	subjectType := "reading/language problems"
	mathConcepts := ""
	if subject == "math" {
		subjectType = "math word problems"
		mathConcepts = mathConceptsForGrade(kid.Grade)
	}

	countryContext := ""
	if country != "" {
		countryContext = fmt.Sprintf("\nNOTE: This child is in the %s. Adjust problem context appropriately.", gradeSystemNote(country))
	}

	var others []models.Kid
	for _, k := range allKids {
		if k.Alias != kid.Alias {
			others = append(others, k)
		}
	}

	var nameInstruction string
	if len(others) > 0 {
		otherNames := kidAliases(others)
		nameInstruction = fmt.Sprintf(`- IMPORTANT: Use "{name}" as a placeholder for the main character in the problems. You may also include other children: %s to make problems more social/interactive (e.g., "{name} and %s are sharing cookies...")`, otherNames, others[0].Alias)
	} else {
		nameInstruction = `- IMPORTANT: Use "{name}" as a placeholder for the child's name in the problems to make them personal (e.g., "{name} has 5 apples...")`
	}

	return strings.TrimSpace(fmt.Sprintf(`
Generate %d %s for a child.

CHILD INFO:
- Grade: %s
- Difficulty: %d/5
%s

%s

GRADE LEVELS (Reference):
- Grade K = Kindergarten (age 5-6)
- Grade 1-2 = Early elementary (age 6-8)
- Grade 3-4 = Upper elementary (age 8-10)
- Grade 5-6 = Middle school prep (age 10-12)
- Grade 7-8 = Middle school (age 12-14)
- Grade 9-12 = High school (age 14-18)
%s

CRITICAL REQUIREMENTS:
- All problems must be WORD PROBLEMS with a fun, engaging story context
%s
- Do NOT use raw arithmetic like "5+3=" or "342+89"
- Problems should feel like mini-adventures or puzzles within a story
- Each problem should be different and creative
- The difficulty should GENUINELY match the specified level - do NOT make problems too easy
- For difficulty 3+ include problems that require multiple steps or careful reasoning
- Challenge the child appropriately - easy problems waste their potential

Respond with JSON:
{
  "problems": [
    { "problem": "...", "solution": "..." }
  ]
}
`, count, subjectType, kid.Grade, kid.DifficultyLevel, countryContext,
		difficultyDescription(kid.DifficultyLevel), mathConcepts, nameInstruction))
}

// kidAliases joins kid aliases with commas
func kidAliases(kids []models.Kid) string {
	aliases := make([]string, len(kids))
	for i, kid := range kids {
		aliases[i] = kid.Alias
	}
	return strings.Join(aliases, ", ")
}
