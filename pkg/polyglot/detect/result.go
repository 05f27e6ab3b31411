package detect

// Method names the pipeline stage that decided a result.
type Method string

const (
	MethodFilename   Method = "Filename"
	MethodExtension  Method = "Extension"
	MethodShebang    Method = "Shebang"
	MethodHeuristic  Method = "Heuristic"
	MethodClassifier Method = "Classifier"
	MethodUnknown    Method = "Unknown"
)

// Methods lists every method in pipeline order.
func Methods() []Method {
	return []Method{MethodFilename, MethodExtension, MethodShebang, MethodHeuristic, MethodClassifier, MethodUnknown}
}

// Result is the language detected for one file. Language is empty exactly
// when Method is MethodUnknown.
type Result struct {
	Language string `json:"language"`
	Method   Method `json:"method"`
}

var unknown = Result{Method: MethodUnknown}

func (r Result) Known() bool { return r.Language != "" }

// Columns splits results into row-aligned language and method columns. An
// undetected language is the empty string.
func Columns(results []Result) (languages, methods []string) {
	languages = make([]string, len(results))
	methods = make([]string, len(results))
	for i, r := range results {
		languages[i] = r.Language
		methods[i] = string(r.Method)
	}
	return languages, methods
}
