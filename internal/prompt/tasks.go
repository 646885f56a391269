package prompt

import "fmt"

// Task is the final instruction segment and the knobs that shape the
// segments before it.
type Task interface {
	// Name identifies the task in logs.
	Name() string
	// Instructions is the trailing text segment, including the query value.
	Instructions() string
	// DocumentCaption follows an inline reference document.
	DocumentCaption() string
	// UsesManualRules reports whether manual entries ground this task.
	UsesManualRules() bool
}

// ClassifyTask asks whether an HTS code falls under any derivative category.
type ClassifyTask struct {
	Code string
}

// Name implements Task.
func (ClassifyTask) Name() string { return "classify" }

// UsesManualRules implements Task.
func (ClassifyTask) UsesManualRules() bool { return true }

// DocumentCaption implements Task.
func (ClassifyTask) DocumentCaption() string {
	return "The above is the reference document containing Derivative HTS details for Aluminum and Steel."
}

// Instructions implements Task.
func (t ClassifyTask) Instructions() string {
	return fmt.Sprintf(`You are a Trade Compliance Expert.
Analyze the provided reference document (if any) and the Manual Override Rules carefully.

Task: Determine if the HTS Code "%s" falls under any "Derivative HTS" category for Aluminum or Steel.

Rules:
1. The user might provide a 4, 6, 8, or 10 digit code. Check if it matches any specific code or falls within any ranges/categories defined in the text or manual rules.
2. If the code falls under multiple categories (e.g., it is under a general heading AND a specific sub-derivative list), YOU MUST LIST ALL OF THEM in the 'matches' array.
3. For EACH match, provide the specific 'derivativeCategory' name and a 'matchDetail' explaining the exact text/rule it matched.
4. Identify if each match relates to Aluminum, Steel, or Both.
5. For each match, assign a 'confidence' level ('High', 'Medium', 'Low'). A code matching a Manual Override Rule explicitly is a 'High' confidence match.
6. If the code is not covered at all, set 'found' to false and return an empty 'matches' array.
7. Summarize why the code does or does not match in 'reasoning'.
8. Return the result in JSON format.`, t.Code)
}

// LookupTask asks for the full text of a provision or heading.
type LookupTask struct {
	Code string
}

// Name implements Task.
func (LookupTask) Name() string { return "lookup" }

// UsesManualRules implements Task.
func (LookupTask) UsesManualRules() bool { return false }

// DocumentCaption implements Task.
func (LookupTask) DocumentCaption() string {
	return "The above is the reference document containing Derivative HTS details."
}

// Instructions implements Task.
func (t LookupTask) Instructions() string {
	return fmt.Sprintf(`You are a Trade Compliance Expert.
Analyze the provided reference document.

Task: The user is asking for the details of a specific HTS Provision or Heading: "%s".
(Example: 9903.81.91, Heading 7604, etc.)

Requirements:
1. Search the text for this specific code or heading.
2. If found, extract the FULL text description, scope, and any notes (e.g. effective dates, exclusions, specific countries) associated with it.
3. Identify if it relates to Steel, Aluminum, or Both.
4. If the exact code is not found, but a parent range or very similar provision is found, provide that detail but note it in the description.
5. Return the result in JSON format using the provided schema.`, t.Code)
}

// HeadingsTask asks for every 4-digit heading the document covers.
type HeadingsTask struct{}

// Name implements Task.
func (HeadingsTask) Name() string { return "headings" }

// UsesManualRules implements Task.
func (HeadingsTask) UsesManualRules() bool { return false }

// DocumentCaption implements Task.
func (HeadingsTask) DocumentCaption() string { return "Reference document." }

// Instructions implements Task.
func (HeadingsTask) Instructions() string {
	return `Analyze the document and extract a list of all HTS Headings (typically 4-digit codes like 7601, 7604, 7301, etc.) that are explicitly mentioned as having derivatives or being part of the scope.
For each heading:
1. Provide the heading code.
2. Provide a brief title/description.
3. Provide a detailed summary of the text content related to this heading (rules, scope, exclusions).
Return the data in JSON format with a 'headings' array.`
}
