package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/common"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/model"
)

func TestCommandTree(t *testing.T) {
	root := newRootCmd()

	tests := []struct {
		path  []string
		flags []string
	}{
		{path: []string{"import", "ofx"}, flags: []string{"dry-run"}},
		{path: []string{"categories", "list"}},
		{path: []string{"categories", "add"}, flags: []string{"type"}},
		{path: []string{"categories", "delete"}},
		{path: []string{"categories", "init"}},
		{path: []string{"rules", "list"}},
		{path: []string{"rules", "add"}, flags: []string{"category", "keywords", "confidence", "min-amount", "max-day", "require", "exclude", "regex"}},
		{path: []string{"rules", "edit"}, flags: []string{"clear-conditions", "keywords"}},
		{path: []string{"rules", "enable"}},
		{path: []string{"rules", "disable"}},
		{path: []string{"rules", "delete"}},
		{path: []string{"rules", "test"}, flags: []string{"amount", "date"}},
		{path: []string{"categorize"}, flags: []string{"apply", "min-confidence", "limit"}},
		{path: []string{"duplicates", "detect"}, flags: []string{"account", "since", "until"}},
		{path: []string{"duplicates", "explain"}},
		{path: []string{"duplicates", "apply"}, flags: []string{"action", "yes", "no-backup", "account"}},
		{path: []string{"duplicates", "settings", "show"}},
		{path: []string{"duplicates", "settings", "set"}, flags: []string{"amount-tolerance", "days-tolerance", "consider-category", "reset"}},
		{path: []string{"backup", "create"}},
		{path: []string{"backup", "list"}},
		{path: []string{"version"}},
	}

	for _, tt := range tests {
		t.Run(filepath.Join(tt.path...), func(t *testing.T) {
			cmd, rest, err := root.Find(tt.path)
			require.NoError(t, err)
			assert.Empty(t, rest)
			assert.Equal(t, tt.path[len(tt.path)-1], cmd.Name())
			for _, f := range tt.flags {
				assert.NotNil(t, cmd.Flags().Lookup(f), "missing flag --%s", f)
			}
		})
	}

	for _, f := range []string{"config", "log-level", "log-format"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(f))
	}
}

func TestCategorizeDefaultMinConfidence(t *testing.T) {
	cmd, _, err := newRootCmd().Find([]string{"categorize"})
	require.NoError(t, err)
	assert.Equal(t, "0.7", cmd.Flags().Lookup("min-confidence").DefValue)
}

func TestRuleFlagsConditions(t *testing.T) {
	dec := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }

	tests := []struct {
		name    string
		flags   ruleFlags
		want    []model.ConditionKind
		wantErr bool
		check   func(t *testing.T, conds model.Conditions)
	}{
		{name: "no conditions", flags: ruleFlags{}},
		{
			name:  "range",
			flags: ruleFlags{minAmount: "10", maxAmount: "100,50"},
			want:  []model.ConditionKind{model.ConditionAmount},
			check: func(t *testing.T, conds model.Conditions) {
				c := conds[0].(model.AmountCondition)
				assert.Equal(t, model.AmountRange, c.Op)
				assert.True(t, dec("100.50").Equal(*c.Max))
			},
		},
		{
			name:  "min only",
			flags: ruleFlags{minAmount: "50"},
			want:  []model.ConditionKind{model.ConditionAmount},
			check: func(t *testing.T, conds model.Conditions) {
				assert.Equal(t, model.AmountGreaterEqual, conds[0].(model.AmountCondition).Op)
			},
		},
		{
			name:  "max only",
			flags: ruleFlags{maxAmount: "50"},
			want:  []model.ConditionKind{model.ConditionAmount},
			check: func(t *testing.T, conds model.Conditions) {
				assert.Equal(t, model.AmountLessEqual, conds[0].(model.AmountCondition).Op)
			},
		},
		{
			name:  "day window and text",
			flags: ruleFlags{minDay: 1, maxDay: 10, require: "aluguel", exclude: "estorno"},
			want:  []model.ConditionKind{model.ConditionDay, model.ConditionText, model.ConditionText},
			check: func(t *testing.T, conds model.Conditions) {
				assert.False(t, conds[1].(model.TextCondition).Exclude)
				assert.True(t, conds[2].(model.TextCondition).Exclude)
			},
		},
		{name: "bad amount", flags: ruleFlags{minAmount: "dez"}, wantErr: true},
		{name: "inverted range", flags: ruleFlags{minAmount: "100", maxAmount: "10"}, wantErr: true},
		{name: "inverted days", flags: ruleFlags{minDay: 20, maxDay: 5}, wantErr: true},
		{name: "bad regex", flags: ruleFlags{require: "(", regex: true}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conds, err := tt.flags.conditions()
			if tt.wantErr {
				require.Error(t, err)
				_, ok := common.UserMessage(err)
				assert.True(t, ok)
				return
			}
			require.NoError(t, err)

			kinds := make([]model.ConditionKind, 0, len(conds))
			for _, c := range conds {
				kinds = append(kinds, c.Kind())
			}
			assert.Equal(t, len(tt.want), len(kinds))
			if len(tt.want) > 0 {
				assert.Equal(t, tt.want, kinds)
			}
			if tt.check != nil {
				tt.check(t, conds)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"2024-03-05", "05/03/2024", " 2024-03-05 "} {
		got, err := parseDate(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), in)
	}

	_, err := parseDate("março")
	assert.Error(t, err)
}

func TestCategoryNotFoundSuggestsClosest(t *testing.T) {
	categories := []model.Category{{ID: "1", Name: "Transporte"}, {ID: "2", Name: "Lazer"}}

	err := categoryNotFound("transprte", categories)
	msg, ok := common.UserMessage(err)
	require.True(t, ok)
	assert.Contains(t, msg, `"Transporte"`)
	assert.ErrorIs(t, err, common.ErrNotFound)

	msg, _ = common.UserMessage(categoryNotFound("xyzxyzxyz", categories))
	assert.NotContains(t, msg, "quis dizer")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "curto", truncate("curto", 10))
	assert.Equal(t, "Alime…", truncate("Alimentação", 6))
}

const e2eOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>POR
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>BRL
<BANKACCTFROM>
<BANKID>0001
<ACCTID>12345-6
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240110120000[0:GMT]
<TRNAMT>-32.40
<FITID>A1
<NAME>UBER *TRIP
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-89.90
<FITID>A2
<NAME>SUPERMERCADO DIA
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240116120000[0:GMT]
<TRNAMT>-89.90
<FITID>A3
<NAME>SUPERMERCADO DIA
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>100.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func runCLI(t *testing.T, cfg string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--config", cfg, "--log-level", "error"}, args...))

	err := root.Execute()
	return out.String(), err
}

func TestCLIWorkflow(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("database:\n  path: "+filepath.Join(dir, "solviss.db")+"\n"), 0o600))
	statement := filepath.Join(dir, "extrato.ofx")
	require.NoError(t, os.WriteFile(statement, []byte(e2eOFX), 0o600))

	out, err := runCLI(t, cfg, "categories", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "9 categorias criadas")

	out, err = runCLI(t, cfg, "import", "ofx", statement)
	require.NoError(t, err)
	assert.Contains(t, out, "3 transações importadas")

	out, err = runCLI(t, cfg, "import", "ofx", statement)
	require.NoError(t, err)
	assert.Contains(t, out, "0 transações importadas, 3 já existiam")

	out, err = runCLI(t, cfg, "rules", "test", "Uber", "viagem")
	require.NoError(t, err)
	assert.Contains(t, out, "Transporte")
	assert.Contains(t, out, "builtin_transport")

	out, err = runCLI(t, cfg, "categorize", "--apply")
	require.NoError(t, err)
	assert.Contains(t, out, "Transporte")
	assert.Contains(t, out, "categorias aplicadas")

	out, err = runCLI(t, cfg, "duplicates", "detect")
	require.NoError(t, err)
	assert.Contains(t, out, "Grupo 1")
	assert.Contains(t, out, "SUPERMERCADO DIA")
	assert.Contains(t, out, "valor idêntico")

	out, err = runCLI(t, cfg, "duplicates", "apply", "1", "--action", "keep_first", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "1 duplicata(s) removida(s)")
	assert.Contains(t, out, "Backup salvo em")

	out, err = runCLI(t, cfg, "backup", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "auto-duplicates-")
	assert.Contains(t, out, "automático")

	out, err = runCLI(t, cfg, "duplicates", "detect")
	require.NoError(t, err)
	assert.Contains(t, out, "Nenhuma duplicata em 2 transações")

	_, err = runCLI(t, cfg, "duplicates", "apply", "1", "--yes")
	assert.ErrorIs(t, err, common.ErrNotFound)

	out, err = runCLI(t, cfg, "duplicates", "settings", "set", "--days-tolerance", "5", "--consider-category")
	require.NoError(t, err)
	assert.Contains(t, out, "Configurações salvas")

	out, err = runCLI(t, cfg, "duplicates", "settings", "show")
	require.NoError(t, err)
	assert.Regexp(t, `days-tolerance\s+5`, out)
	assert.Regexp(t, `consider-category\s+true`, out)

	_, err = runCLI(t, cfg, "duplicates", "settings", "set", "--description-threshold=1.5")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestCLISettingsReset(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	content := "database:\n  path: " + filepath.Join(dir, "solviss.db") + "\n" +
		"duplicates:\n  days_tolerance: 7\n"
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0o600))

	out, err := runCLI(t, cfg, "duplicates", "settings", "show")
	require.NoError(t, err)
	assert.Regexp(t, `days-tolerance\s+7`, out)

	_, err = runCLI(t, cfg, "duplicates", "settings", "set", "--days-tolerance", "2", "--consider-category")
	require.NoError(t, err)
	out, err = runCLI(t, cfg, "duplicates", "settings", "show")
	require.NoError(t, err)
	assert.Regexp(t, `days-tolerance\s+2`, out)

	out, err = runCLI(t, cfg, "duplicates", "settings", "set", "--reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Configurações restauradas")

	out, err = runCLI(t, cfg, "duplicates", "settings", "show")
	require.NoError(t, err)
	assert.Regexp(t, `days-tolerance\s+7`, out)
	assert.Regexp(t, `consider-category\s+false`, out)

	// A later config change is picked up because nothing is stored.
	content = strings.Replace(content, "days_tolerance: 7", "days_tolerance: 4", 1)
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0o600))
	out, err = runCLI(t, cfg, "duplicates", "settings", "show")
	require.NoError(t, err)
	assert.Regexp(t, `days-tolerance\s+4`, out)

	// Reset combined with a flag starts from the config file.
	_, err = runCLI(t, cfg, "duplicates", "settings", "set", "--reset", "--consider-category")
	require.NoError(t, err)
	out, err = runCLI(t, cfg, "duplicates", "settings", "show")
	require.NoError(t, err)
	assert.Regexp(t, `days-tolerance\s+4`, out)
	assert.Regexp(t, `consider-category\s+true`, out)
}

func TestCLIRules(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("database:\n  path: "+filepath.Join(dir, "solviss.db")+"\n"), 0o600))

	_, err := runCLI(t, cfg, "categories", "add", "Games", "--type", "expense")
	require.NoError(t, err)

	_, err = runCLI(t, cfg, "categories", "add", "Games")
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)

	_, err = runCLI(t, cfg, "rules", "add", "--category", "Gmaes", "--keywords", "steam")
	require.Error(t, err)
	msg, _ := common.UserMessage(err)
	assert.Contains(t, msg, `"Games"`)

	out, err := runCLI(t, cfg, "rules", "add", "--category", "Games", "--keywords", "steam,playstation", "--confidence", "0.85")
	require.NoError(t, err)
	assert.Contains(t, out, "Regra custom_")

	out, err = runCLI(t, cfg, "rules", "test", "STEAM PURCHASE")
	require.NoError(t, err)
	assert.Contains(t, out, "Games")
	assert.Contains(t, out, "85%")

	_, err = runCLI(t, cfg, "rules", "delete", "builtin_transport")
	assert.ErrorIs(t, err, common.ErrBuiltinRule)

	_, err = runCLI(t, cfg, "rules", "disable", "custom_missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	// version needs no config file
	root.PersistentPreRunE = func(*cobra.Command, []string) error { return nil }

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "solviss dev")
}
