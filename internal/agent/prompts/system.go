// Package prompts holds the prompt text sent to the due-diligence model.
package prompts

import (
	"fmt"
	"strings"
)

// Ratings in the order they are searched for in a response. Compound
// ratings come first so "STRONG BUY" is not read as "BUY".
var Ratings = []string{"STRONG BUY", "STRONG SELL", "BUY", "SELL", "HOLD"}

// DefaultRating applies when a response names none of Ratings.
const DefaultRating = "HOLD"

// SystemPrompt frames every due-diligence request.
const SystemPrompt = `You are a meticulous equity analyst. Base every claim on the statements you are given, show your calculations, and say so when the data is insufficient. Never invent figures.`

const dueDiligenceTemplate = `You are a financial analyst performing due diligence on %s. Analyze the following financial statements and provide:

1. **Key Metrics Analysis**: Calculate and interpret important ratios:
   - Liquidity: Current Ratio, Quick Ratio
   - Profitability: Gross Margin, Operating Margin, Net Margin, ROE, ROA
   - Leverage: Debt-to-Equity, Interest Coverage
   - Efficiency: Asset Turnover, Inventory Turnover

2. **Growth Analysis**: Evaluate trends over the periods provided:
   - Revenue growth (YoY and multi-year CAGR)
   - Earnings growth
   - Cash flow trends
   - Consistency and sustainability of growth

3. **Financial Health Assessment**:
   - Liquidity position and working capital
   - Debt levels and capital structure
   - Cash generation and free cash flow
   - Operational efficiency

4. **Red Flags & Risks**: Identify concerning patterns:
   - Deteriorating margins
   - Rising debt levels
   - Negative cash flows
   - Revenue quality issues
   - Any accounting concerns

5. **Growth Potential**: Based on the financial data:
   - Cash available for expansion
   - Profitability trends suggesting competitive advantage
   - Operational leverage opportunities

6. **Final Rating**: Assign ONE of these ratings with justification:
   - STRONG BUY: Exceptional fundamentals and strong growth
   - BUY: Good fundamentals with growth potential
   - HOLD: Stable but limited upside
   - SELL: Weakening fundamentals
   - STRONG SELL: Serious financial concerns

Financial Data:
%s
%s
Provide your analysis in clear sections with specific numbers and calculations. You must end with ### JUSTIFICATION ###, followed by a fenced json block of the form {"rating": "...", "confidence": 0-100, "summary": "..."}.`

// DueDiligence builds the analysis prompt. financialData is the indented
// JSON of the three statements; news is optional.
func DueDiligence(symbol, financialData, news string) string {
	if news = strings.TrimSpace(news); news != "" {
		news = "\nRecent Headlines:\n" + news + "\n"
	}
	return fmt.Sprintf(dueDiligenceTemplate, symbol, strings.TrimRight(financialData, "\n"), news)
}
