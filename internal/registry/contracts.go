package registry

// Aave V3 deployment on Base, the agent's home chain. Addresses follow the
// bgd-labs address book.
const (
	AavePoolBase    = "0xA238Dd80C259a72e81d7e4664a9801593F98d1c5"
	WETHGatewayBase = "0x8be473dCfA93132658821E67CbEB684ec8Ea2E74"
	AWETHBase       = "0xD4a0E0B9149bCe49a6332E4861623832D2946f1F"
	USDCBase        = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"

	USDCDecimals = 6
)

// Interest rate mode passed to Aave borrow/repay. Stable rate borrowing is
// retired on V3 deployments, so variable is the only mode the builders emit.
const VariableRateMode int64 = 2
