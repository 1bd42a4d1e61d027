package pipeline

// Defaults for statement parsing. The model is fixed by configuration and is
// never chosen by the end user.
const (
	// DefaultModelName is the default Gemini model used for parsing.
	DefaultModelName = "gemini-3-flash-preview"

	// MessageNoTransactions is shown when a run yields zero records.
	MessageNoTransactions = "Não foi possível encontrar transações no arquivo. Verifique se o PDF é um extrato bancário válido."

	// MessageGenericFailure is used when a failure carries no description.
	MessageGenericFailure = "Ocorreu um erro ao processar o arquivo."
)
