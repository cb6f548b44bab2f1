package chain

import (
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
)

// Method names on the two contracts.
const (
	MethodVerifyProof             = "verifyProof"
	MethodGetHashStatus           = "getHashStatus"
	MethodCheckDetailedMembership = "checkDetailedMembership"
)

// VerifierMetaData contains the interface of the proof verifier contract.
var VerifierMetaData = &bind.MetaData{
	ABI: "[{\"inputs\":[{\"internalType\":\"uint256[2]\",\"name\":\"a\",\"type\":\"uint256[2]\"},{\"internalType\":\"uint256[2][2]\",\"name\":\"b\",\"type\":\"uint256[2][2]\"},{\"internalType\":\"uint256[2]\",\"name\":\"c\",\"type\":\"uint256[2]\"},{\"internalType\":\"uint256[1]\",\"name\":\"input\",\"type\":\"uint256[1]\"}],\"name\":\"verifyProof\",\"outputs\":[{\"internalType\":\"address\",\"name\":\"hashDeployer\",\"type\":\"address\"},{\"internalType\":\"bool\",\"name\":\"isValid\",\"type\":\"bool\"}],\"stateMutability\":\"nonpayable\",\"type\":\"function\"},{\"inputs\":[{\"internalType\":\"bytes32\",\"name\":\"_hash\",\"type\":\"bytes32\"}],\"name\":\"getHashStatus\",\"outputs\":[{\"internalType\":\"bool\",\"name\":\"isActive\",\"type\":\"bool\"},{\"internalType\":\"address\",\"name\":\"deployer\",\"type\":\"address\"},{\"internalType\":\"bool\",\"name\":\"exists\",\"type\":\"bool\"}],\"stateMutability\":\"view\",\"type\":\"function\"}]",
}

// MembershipMetaData contains the interface of the club membership query contract.
var MembershipMetaData = &bind.MetaData{
	ABI: "[{\"inputs\":[{\"internalType\":\"address\",\"name\":\"member\",\"type\":\"address\"},{\"internalType\":\"string\",\"name\":\"domainName\",\"type\":\"string\"}],\"name\":\"checkDetailedMembership\",\"outputs\":[{\"internalType\":\"bool\",\"name\":\"isPermanent\",\"type\":\"bool\"},{\"internalType\":\"bool\",\"name\":\"isTemporary\",\"type\":\"bool\"},{\"internalType\":\"bool\",\"name\":\"isTokenBased\",\"type\":\"bool\"},{\"internalType\":\"bool\",\"name\":\"isCrossChain\",\"type\":\"bool\"}],\"stateMutability\":\"view\",\"type\":\"function\"}]",
}
