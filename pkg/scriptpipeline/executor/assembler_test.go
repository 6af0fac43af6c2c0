package executor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssembleProducesRunnableScriptStructure(t *testing.T) {
	block := ScriptBlock{
		InterfacesNeeded: []InterfaceDefinition{
			{Name: "IERC20", Source: InterfaceForgeStd},
		},
		TransactionCalls: []TransactionCall{
			{Description: "approve spender", SolidityCode: "token.approve(spender, 100);"},
		},
	}

	code, err := Assemble(block, DefaultAssemblyConfig())
	require.NoError(t, err)
	require.Contains(t, code, "pragma solidity ^0.8.20;")
	require.Contains(t, code, `import {IERC20} from "forge-std/interfaces/IERC20.sol";`)
	require.Contains(t, code, "contract AomiScript is Script, StdCheats {")
	require.Contains(t, code, "deal(msg.sender, 10 ether);")
	require.Contains(t, code, "vm.startBroadcast();")
	require.Contains(t, code, "// approve spender")
	require.Contains(t, code, "token.approve(spender, 100);")
	require.Contains(t, code, "vm.stopBroadcast();")
}

func TestAssembleDefaultsFundingWhenEmpty(t *testing.T) {
	config := DefaultAssemblyConfig()
	config.FundingRequirements = nil

	code, err := Assemble(ScriptBlock{}, config)
	require.NoError(t, err)
	require.Contains(t, code, "deal(msg.sender, 10 ether);")
}

func TestAssembleERC20Funding(t *testing.T) {
	config := DefaultAssemblyConfig()
	config.FundingRequirements = []FundingRequirement{
		{AssetType: AssetERC20, TokenAddress: "0xToken", Amount: "1000.5", Decimals: 6},
	}

	code, err := Assemble(ScriptBlock{}, config)
	require.NoError(t, err)
	require.Contains(t, code, "deal(0xToken, msg.sender, 1000500000);")
}

func TestAssembleRejectsInvalidEthAmount(t *testing.T) {
	config := DefaultAssemblyConfig()
	config.FundingRequirements = []FundingRequirement{{AssetType: AssetETH, Amount: "1.2.3"}}

	_, err := Assemble(ScriptBlock{}, config)
	require.Error(t, err)
}

func TestFormatERC20AmountRejectsExcessPrecision(t *testing.T) {
	_, err := formatERC20Amount("1.1234567", 4)
	require.Error(t, err)
}

func TestFormatERC20AmountHandlesWholeNumbers(t *testing.T) {
	amount, err := formatERC20Amount("5", 18)
	require.NoError(t, err)
	require.Equal(t, "5000000000000000000", amount)
}
