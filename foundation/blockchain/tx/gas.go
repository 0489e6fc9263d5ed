package tx

// Intrinsic gas charged by the chain before any clause executes.
const (
	txGas          = 5000
	clauseGas      = 16000
	zeroByteGas    = 4
	nonZeroByteGas = 68
)

// IntrinsicGas returns the gas the chain charges for carrying the clauses,
// which node simulation does not include in its gas used.
func IntrinsicGas(clauses ...Clause) uint64 {
	gas := uint64(txGas)

	for _, c := range clauses {
		gas += clauseGas

		for _, b := range c.Data {
			switch b {
			case 0:
				gas += zeroByteGas
			default:
				gas += nonZeroByteGas
			}
		}
	}

	return gas
}
