// Package ofx reads OFX/QFX bank and credit card statements into transactions.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/common"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/model"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// Opening tags at end of line that lost their closing bracket.
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)

	// Namespace for transaction ids derived from account and FITID.
	transactionNamespace = uuid.MustParse("6f1c1d2e-9a53-4c1b-8f0e-2b6a7e5d4c31")
)

// Card and debit prefixes banks put in front of the merchant name.
var descriptionPrefixes = []string{
	"COMPRA CARTAO DEB ",
	"COMPRA CARTAO ",
	"COMPRA NO DEBITO ",
	"COMPRA NO CREDITO ",
	"COMPRA DEBITO ",
	"POS PURCHASE ",
	"DEBIT CARD PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
}

var genericDescriptions = map[string]bool{
	"DEBITO":        true,
	"CREDITO":       true,
	"COMPRA":        true,
	"PAGAMENTO":     true,
	"DEBIT":         true,
	"CREDIT":        true,
	"PURCHASE":      true,
	"PAYMENT":       true,
	"TRANSFERENCIA": true,
}

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

func (p *Parser) parse(reader io.Reader) (*ofxgo.Response, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}
	return resp, nil
}

// ParseFile parses an OFX/QFX file and returns its transactions in statement order.
// Amounts keep the OFX sign: debits are negative.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]model.Transaction, error) {
	resp, err := p.parse(reader)
	if err != nil {
		return nil, err
	}

	var transactions []model.Transaction
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bankStmts++
		transactions = append(transactions, p.convertAll(stmt.BankTranList.Transactions, string(stmt.BankAcctFrom.AcctID))...)
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ccStmts++
		transactions = append(transactions, p.convertAll(stmt.BankTranList.Transactions, string(stmt.CCAcctFrom.AcctID))...)
	}

	if len(transactions) == 0 && bankStmts == 0 && ccStmts == 0 {
		return nil, common.ErrNoTransactions
	}

	slog.Debug("Parsed OFX file",
		"total_transactions", len(transactions),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return transactions, nil
}

func (p *Parser) convertAll(ofxTxns []ofxgo.Transaction, accountID string) []model.Transaction {
	transactions := make([]model.Transaction, 0, len(ofxTxns))
	for _, ofxTx := range ofxTxns {
		tx, err := p.convertTransaction(ofxTx, accountID)
		if err != nil {
			slog.Warn("Skipping OFX transaction",
				"account", accountID,
				"fitid", string(ofxTx.FiTID),
				"error", err)
			continue
		}
		transactions = append(transactions, tx)
	}
	return transactions
}

// convertTransaction converts an OFX transaction to our model.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, accountID string) (model.Transaction, error) {
	amount, err := decimal.NewFromString(ofxTx.TrnAmt.FloatString(2))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("invalid amount: %w", err)
	}

	tx := model.Transaction{
		ID:          transactionID(accountID, string(ofxTx.FiTID)),
		Date:        ofxTx.DtPosted.Time.UTC(),
		Description: p.extractDescription(ofxTx),
		Amount:      amount,
		AccountID:   accountID,
	}
	if tx.Description == "" {
		tx.Description = fmt.Sprintf("%v", ofxTx.TrnType)
	}

	tx.Hash = tx.GenerateHash()
	return tx, nil
}

// transactionID derives a stable id from the account and the bank's FITID so
// re-importing a statement yields the same ids.
func transactionID(accountID, fitID string) string {
	if fitID == "" {
		return uuid.NewString()
	}
	return uuid.NewSHA1(transactionNamespace, []byte(accountID+"/"+fitID)).String()
}

// extractDescription picks the most informative description field.
func (p *Parser) extractDescription(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := strings.TrimSpace(string(tx.Name))
	if memo := strings.TrimSpace(string(tx.Memo)); memo != "" && (name == "" || genericDescriptions[strings.ToUpper(name)]) {
		name = memo
	}

	for _, prefix := range descriptionPrefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = strings.TrimSpace(name[len(prefix):])
			break
		}
	}

	// Date stamps like "15/01 " at the start
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

// GetAccounts extracts the account ids present in an OFX file, sorted.
func (p *Parser) GetAccounts(_ context.Context, reader io.Reader) ([]string, error) {
	resp, err := p.parse(reader)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankAcctFrom.AcctID != "" {
			seen[string(stmt.BankAcctFrom.AcctID)] = true
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.CCAcctFrom.AcctID != "" {
			seen[string(stmt.CCAcctFrom.AcctID)] = true
		}
	}

	accounts := make([]string, 0, len(seen))
	for acct := range seen {
		accounts = append(accounts, acct)
	}
	sort.Strings(accounts)
	return accounts, nil
}
