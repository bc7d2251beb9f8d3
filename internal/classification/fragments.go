package classification

// FragmentRule associates a fragment of a category name with the keywords that
// category is expected to cover.
type FragmentRule struct {
	Fragment string   `mapstructure:"fragment" json:"fragment"`
	Keywords []string `mapstructure:"keywords" json:"keywords"`
}

// FragmentTable drives how rule templates are bound to the caller's categories.
//
// A template binds to the first category whose normalized name contains a Primary
// fragment whose keywords share at least one keyword with the template. Failing
// that, Fallback lists, per template id, name fragments that bind it directly.
// The defaults assume Portuguese category names.
type FragmentTable struct {
	Fallback map[string][]string `mapstructure:"fallback" json:"fallback"`
	Primary  []FragmentRule      `mapstructure:"fragments" json:"fragments"`
}

// DefaultFragmentTable returns the fragment table for Portuguese category names.
func DefaultFragmentTable() FragmentTable {
	return FragmentTable{
		Primary: []FragmentRule{
			{Fragment: "alimenta", Keywords: []string{"supermercado", "mercado", "padaria", "restaurante", "lanchonete", "ifood"}},
			{Fragment: "comida", Keywords: []string{"restaurante", "lanchonete", "ifood", "pizzaria"}},
			{Fragment: "mercado", Keywords: []string{"supermercado", "mercado", "hortifruti", "acougue"}},
			{Fragment: "restaurante", Keywords: []string{"restaurante", "lanchonete", "pizzaria", "ifood"}},
			{Fragment: "transport", Keywords: []string{"uber", "taxi", "combustivel", "posto", "onibus", "metro"}},
			{Fragment: "combustivel", Keywords: []string{"combustivel", "posto", "gasolina", "etanol"}},
			{Fragment: "moradia", Keywords: []string{"aluguel", "condominio", "iptu", "energia eletrica"}},
			{Fragment: "casa", Keywords: []string{"aluguel", "condominio", "internet"}},
			{Fragment: "saude", Keywords: []string{"farmacia", "drogaria", "hospital", "clinica", "medico"}},
			{Fragment: "educa", Keywords: []string{"escola", "faculdade", "curso", "livraria"}},
			{Fragment: "lazer", Keywords: []string{"netflix", "spotify", "cinema", "teatro"}},
			{Fragment: "entreten", Keywords: []string{"netflix", "spotify", "cinema", "ingresso"}},
			{Fragment: "compra", Keywords: []string{"loja", "magazine luiza", "americanas", "shopee", "amazon"}},
			{Fragment: "vestuario", Keywords: []string{"renner", "riachuelo", "loja"}},
			{Fragment: "salario", Keywords: []string{"salario", "holerite", "folha de pagamento"}},
			{Fragment: "freela", Keywords: []string{"freelance", "freela", "honorarios"}},
			{Fragment: "servico", Keywords: []string{"consultoria", "honorarios", "prestacao de servico"}},
		},
		Fallback: map[string][]string{
			"food":          {"aliment", "comida", "mercado"},
			"transport":     {"transport", "carro", "veiculo"},
			"housing":       {"moradia", "casa", "habitacao", "contas"},
			"health":        {"saude", "farmacia", "medic"},
			"education":     {"educacao", "estudo", "curso"},
			"entertainment": {"lazer", "diversao", "entretenimento"},
			"shopping":      {"compras", "vestuario", "roupa"},
			"salary":        {"salario", "renda", "receita"},
			"freelance":     {"freela", "extra", "autonomo"},
		},
	}
}
