package classification

// RuleTemplate is a built-in keyword rule waiting to be bound to one of the caller's categories.
type RuleTemplate struct {
	ID         string
	Name       string
	Keywords   []string // Lowercase, without diacritics
	Confidence float64  // Base confidence when a keyword matches (0.0-1.0)
}

// DefaultTemplates returns the built-in rule catalogue covering common household categories.
func DefaultTemplates() []RuleTemplate {
	return []RuleTemplate{
		// Expense templates
		{
			ID:   "food",
			Name: "Alimentação",
			Keywords: []string{
				"supermercado", "mercado", "padaria", "restaurante", "lanchonete",
				"ifood", "rappi", "pizzaria", "acougue", "hortifruti",
				"churrascaria", "sorveteria", "cafeteria", "mcdonalds", "burger king",
			},
			Confidence: 0.9,
		},
		{
			ID:   "transport",
			Name: "Transporte",
			Keywords: []string{
				"uber", "taxi", "cabify", "combustivel", "gasolina",
				"etanol", "posto", "estacionamento", "pedagio", "sem parar",
				"onibus", "metro", "bilhete unico", "ipiranga", "petrobras",
			},
			Confidence: 0.9,
		},
		{
			ID:   "housing",
			Name: "Moradia",
			Keywords: []string{
				"aluguel", "condominio", "iptu", "energia eletrica", "enel",
				"cemig", "copel", "sabesp", "comgas", "internet",
			},
			Confidence: 0.85,
		},
		{
			ID:   "health",
			Name: "Saúde",
			Keywords: []string{
				"farmacia", "drogaria", "drogasil", "droga raia", "hospital",
				"clinica", "laboratorio", "consulta", "medico", "dentista",
				"unimed", "amil", "hapvida", "plano de saude",
			},
			Confidence: 0.9,
		},
		{
			ID:   "education",
			Name: "Educação",
			Keywords: []string{
				"escola", "faculdade", "universidade", "curso", "mensalidade escolar",
				"livraria", "material escolar", "udemy", "alura", "coursera",
			},
			Confidence: 0.85,
		},
		{
			ID:   "entertainment",
			Name: "Lazer",
			Keywords: []string{
				"netflix", "spotify", "cinema", "teatro", "ingresso",
				"amazon prime", "disney", "hbo", "globoplay", "steam",
				"playstation", "xbox",
			},
			Confidence: 0.85,
		},
		{
			ID:   "shopping",
			Name: "Compras",
			Keywords: []string{
				"loja", "magazine luiza", "magalu", "americanas", "mercadolivre",
				"shopee", "aliexpress", "renner", "riachuelo", "amazon",
				"shopping",
			},
			Confidence: 0.8,
		},

		// Income templates
		{
			ID:   "salary",
			Name: "Salário",
			Keywords: []string{
				"salario", "folha de pagamento", "holerite", "proventos", "adiantamento salarial",
				"decimo terceiro", "13o salario", "ferias",
			},
			Confidence: 0.95,
		},
		{
			ID:   "freelance",
			Name: "Freelance",
			Keywords: []string{
				"freelance", "freela", "honorarios", "consultoria", "prestacao de servico",
				"comissao",
			},
			Confidence: 0.85,
		},
	}
}
