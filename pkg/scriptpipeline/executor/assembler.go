package executor

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/aomilabs/agentcore/internal/agent"
)

const (
	scriptImport    = `import {Script} from "forge-std/Script.sol";`
	stdCheatsImport = `import {StdCheats} from "forge-std/StdCheats.sol";`

	contractName   = "AomiScript"
	contractHeader = "contract " + contractName + " is Script, StdCheats {"
	runHeader      = "    function run() public {"
	startBroadcast = "        vm.startBroadcast();"
	stopBroadcast  = "        vm.stopBroadcast();"
	functionFooter = "    }"
	contractFooter = "}"

	indentL1      = "        "
	indentComment = "        // "
)

// AssetType distinguishes the two funding-requirement shapes a group may
// need before its script can run.
type AssetType int

const (
	AssetETH AssetType = iota
	AssetERC20
)

// FundingRequirement is one pre-funding step the assembled script performs
// via forge-std's `deal` cheat code before broadcasting.
type FundingRequirement struct {
	AssetType    AssetType
	Amount       string
	TokenAddress string
	Decimals     uint8
}

// AssemblyConfig controls the pragma version and the funding performed
// before the broadcast block. Defaults to a plain 10 ETH deal, matching
// the original's AssemblyConfig::default.
type AssemblyConfig struct {
	FundingRequirements []FundingRequirement
	SolidityVersion     string
}

// DefaultAssemblyConfig mirrors the original's default: 10 ETH funding, and
// pragma solidity ^0.8.20.
func DefaultAssemblyConfig() AssemblyConfig {
	return AssemblyConfig{
		FundingRequirements: []FundingRequirement{{AssetType: AssetETH, Amount: "10"}},
		SolidityVersion:     "^0.8.20",
	}
}

// Assemble wraps a ScriptBlock's interfaces and transaction calls in a
// complete, runnable Forge script named AomiScript.
func Assemble(block ScriptBlock, config AssemblyConfig) (string, error) {
	var b strings.Builder

	addPragma(&b, config)
	addImports(&b, block.InterfacesNeeded)
	addInlineInterfaces(&b, block.InterfacesNeeded)

	b.WriteString(contractHeader)
	b.WriteString("\n\n")
	b.WriteString(runHeader)
	b.WriteString("\n")

	if err := addFundingSetup(&b, config.FundingRequirements); err != nil {
		return "", err
	}
	b.WriteString("\n")
	b.WriteString(startBroadcast)
	b.WriteString("\n\n")

	addTransactionCalls(&b, block.TransactionCalls)

	b.WriteString(stopBroadcast)
	b.WriteString("\n")
	b.WriteString(functionFooter)
	b.WriteString("\n")
	b.WriteString(contractFooter)
	b.WriteString("\n")

	return b.String(), nil
}

func addPragma(b *strings.Builder, config AssemblyConfig) {
	fmt.Fprintf(b, "pragma solidity %s;", config.SolidityVersion)
	b.WriteString("\n\n")
}

func addImports(b *strings.Builder, interfaces []InterfaceDefinition) {
	b.WriteString(scriptImport)
	b.WriteString("\n")
	b.WriteString(stdCheatsImport)
	b.WriteString("\n")

	for _, iface := range interfaces {
		if iface.Source == InterfaceForgeStd {
			fmt.Fprintf(b, "import {%s} from \"forge-std/interfaces/%s.sol\";", iface.Name, iface.Name)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
}

func addInlineInterfaces(b *strings.Builder, interfaces []InterfaceDefinition) {
	for _, iface := range interfaces {
		if iface.Source == InterfaceInline && iface.SolidityCode != "" {
			b.WriteString(iface.SolidityCode)
			b.WriteString("\n\n")
		}
	}
}

func addTransactionCalls(b *strings.Builder, calls []TransactionCall) {
	for _, call := range calls {
		b.WriteString(indentComment)
		b.WriteString(call.Description)
		b.WriteString("\n")

		for _, line := range strings.Split(call.SolidityCode, "\n") {
			b.WriteString(indentL1)
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
}

func addFundingSetup(b *strings.Builder, funding []FundingRequirement) error {
	if len(funding) == 0 {
		b.WriteString("        deal(msg.sender, 10 ether);\n")
		return nil
	}

	for _, req := range funding {
		switch req.AssetType {
		case AssetETH:
			sanitized, err := sanitizeEthAmount(req.Amount)
			if err != nil {
				return agent.Wrap(agent.KindGeneration, err, "invalid ETH funding amount "+req.Amount)
			}
			fmt.Fprintf(b, "        deal(msg.sender, %s ether);\n", sanitized)
		case AssetERC20:
			amountWei, err := formatERC20Amount(req.Amount, req.Decimals)
			if err != nil {
				return agent.Wrap(agent.KindGeneration, err, "invalid ERC20 funding amount "+req.Amount)
			}
			fmt.Fprintf(b, "        deal(%s, msg.sender, %s);\n", req.TokenAddress, amountWei)
		}
	}
	return nil
}

func sanitizeEthAmount(amount string) (string, error) {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return "", fmt.Errorf("amount cannot be empty")
	}
	if strings.Count(trimmed, ".") > 1 {
		return "", fmt.Errorf("multiple decimal points not allowed")
	}
	for _, c := range trimmed {
		if !(c >= '0' && c <= '9') && c != '.' && c != '_' {
			return "", fmt.Errorf("invalid characters in amount")
		}
	}
	return trimmed, nil
}

// formatERC20Amount converts a human amount like "1000.5" at the given
// token decimals into its base-unit integer string, rejecting precision
// beyond what decimals supports.
func formatERC20Amount(amount string, decimals uint8) (string, error) {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return "", fmt.Errorf("amount cannot be empty")
	}

	parts := strings.Split(trimmed, ".")
	if len(parts) > 2 {
		return "", fmt.Errorf("amount has more than one decimal point")
	}

	intPart := parts[0]
	var fracPart string
	if len(parts) == 2 {
		fracPart = parts[1]
	}

	if decimals == 0 && fracPart != "" {
		return "", fmt.Errorf("token does not support fractional amounts")
	}

	cleanInt := strings.ReplaceAll(intPart, "_", "")
	if cleanInt != "" && !allDigits(cleanInt) {
		return "", fmt.Errorf("invalid characters in integer part")
	}

	intValue := new(big.Int)
	if cleanInt != "" {
		if _, ok := intValue.SetString(cleanInt, 10); !ok {
			return "", fmt.Errorf("failed to parse integer part")
		}
	}

	pow := pow10(decimals)
	total := new(big.Int).Mul(intValue, pow)

	if fracPart != "" {
		cleanFrac := strings.ReplaceAll(fracPart, "_", "")
		if !allDigits(cleanFrac) {
			return "", fmt.Errorf("invalid characters in fractional part")
		}
		if len(cleanFrac) > int(decimals) {
			return "", fmt.Errorf("fractional precision %d exceeds token decimals %d", len(cleanFrac), decimals)
		}
		padded := cleanFrac + strings.Repeat("0", int(decimals)-len(cleanFrac))
		if padded != "" {
			fracValue := new(big.Int)
			if _, ok := fracValue.SetString(padded, 10); !ok {
				return "", fmt.Errorf("failed to parse fractional part")
			}
			total.Add(total, fracValue)
		}
	}

	return total.String(), nil
}

func pow10(decimals uint8) *big.Int {
	result := big.NewInt(1)
	ten := big.NewInt(10)
	for i := uint8(0); i < decimals; i++ {
		result.Mul(result, ten)
	}
	return result
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
