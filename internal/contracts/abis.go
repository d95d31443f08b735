package contracts

// ABI subsets of the contracts the dashboard calls.

const bPoolABI = `[
	{"name":"totalSupply","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"whom","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"getBalance","type":"function","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"getSwapFee","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"getCurrentTokens","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"tokens","type":"address[]"}]},
	{"name":"getDenormalizedWeight","type":"function","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"dst","type":"address"},{"name":"amt","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"joinPool","type":"function","stateMutability":"nonpayable","inputs":[{"name":"poolAmountOut","type":"uint256"},{"name":"maxAmountsIn","type":"uint256[]"}],"outputs":[]},
	{"name":"exitPool","type":"function","stateMutability":"nonpayable","inputs":[{"name":"poolAmountIn","type":"uint256"},{"name":"minAmountsOut","type":"uint256[]"}],"outputs":[]},
	{"name":"joinswapExternAmountIn","type":"function","stateMutability":"nonpayable","inputs":[{"name":"tokenIn","type":"address"},{"name":"tokenAmountIn","type":"uint256"},{"name":"minPoolAmountOut","type":"uint256"}],"outputs":[{"name":"poolAmountOut","type":"uint256"}]},
	{"name":"exitswapPoolAmountIn","type":"function","stateMutability":"nonpayable","inputs":[{"name":"tokenOut","type":"address"},{"name":"poolAmountIn","type":"uint256"},{"name":"minAmountOut","type":"uint256"}],"outputs":[{"name":"tokenAmountOut","type":"uint256"}]}
]`

const bActionsABI = `[
	{"name":"create","type":"function","stateMutability":"nonpayable","inputs":[{"name":"factory","type":"address"},{"name":"tokens","type":"address[]"},{"name":"balances","type":"uint256[]"},{"name":"denorms","type":"uint256[]"},{"name":"swapFee","type":"uint256"},{"name":"finalize","type":"bool"}],"outputs":[{"name":"pool","type":"address"}]},
	{"name":"joinPool","type":"function","stateMutability":"nonpayable","inputs":[{"name":"pool","type":"address"},{"name":"poolAmountOut","type":"uint256"},{"name":"maxAmountsIn","type":"uint256[]"}],"outputs":[]},
	{"name":"joinswapExternAmountIn","type":"function","stateMutability":"nonpayable","inputs":[{"name":"pool","type":"address"},{"name":"token","type":"address"},{"name":"tokenAmountIn","type":"uint256"},{"name":"minPoolAmountOut","type":"uint256"}],"outputs":[]},
	{"name":"setTokens","type":"function","stateMutability":"nonpayable","inputs":[{"name":"pool","type":"address"},{"name":"tokens","type":"address[]"},{"name":"balances","type":"uint256[]"},{"name":"denorms","type":"uint256[]"}],"outputs":[]},
	{"name":"setPublicSwap","type":"function","stateMutability":"nonpayable","inputs":[{"name":"pool","type":"address"},{"name":"publicSwap","type":"bool"}],"outputs":[]},
	{"name":"setSwapFee","type":"function","stateMutability":"nonpayable","inputs":[{"name":"pool","type":"address"},{"name":"newFee","type":"uint256"}],"outputs":[]},
	{"name":"finalize","type":"function","stateMutability":"nonpayable","inputs":[{"name":"pool","type":"address"}],"outputs":[]}
]`

const bFactoryABI = `[
	{"name":"isBPool","type":"function","stateMutability":"view","inputs":[{"name":"b","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"newBPool","type":"function","stateMutability":"nonpayable","inputs":[],"outputs":[{"name":"","type":"address"}]}
]`

const dsProxyABI = `[
	{"name":"execute","type":"function","stateMutability":"payable","inputs":[{"name":"_target","type":"address"},{"name":"_data","type":"bytes"}],"outputs":[{"name":"response","type":"bytes"}]},
	{"name":"owner","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]}
]`

const dsProxyRegistryABI = `[
	{"name":"build","type":"function","stateMutability":"nonpayable","inputs":[],"outputs":[{"name":"proxy","type":"address"}]},
	{"name":"proxies","type":"function","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"address"}]}
]`

const testTokenABI = `[
	{"name":"name","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"name":"symbol","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"name":"totalSupply","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"transfer","type":"function","stateMutability":"nonpayable","inputs":[{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

const swapTuple = `{"name":"swaps","type":"tuple[]","components":[
	{"name":"pool","type":"address"},
	{"name":"tokenIn","type":"address"},
	{"name":"tokenOut","type":"address"},
	{"name":"swapAmount","type":"uint256"},
	{"name":"limitReturnAmount","type":"uint256"},
	{"name":"maxPrice","type":"uint256"}]}`

const exchangeProxyABI = `[
	{"name":"batchSwapExactIn","type":"function","stateMutability":"payable","inputs":[` + swapTuple + `,{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"totalAmountIn","type":"uint256"},{"name":"minTotalAmountOut","type":"uint256"}],"outputs":[{"name":"totalAmountOut","type":"uint256"}]},
	{"name":"batchSwapExactOut","type":"function","stateMutability":"payable","inputs":[` + swapTuple + `,{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"maxTotalAmountIn","type":"uint256"}],"outputs":[{"name":"totalAmountIn","type":"uint256"}]}
]`

// Same selectors as ExchangeProxy, declared view so results can be read with eth_call.
const exchangeProxyCallableABI = `[
	{"name":"batchSwapExactIn","type":"function","stateMutability":"view","inputs":[` + swapTuple + `,{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"totalAmountIn","type":"uint256"},{"name":"minTotalAmountOut","type":"uint256"}],"outputs":[{"name":"totalAmountOut","type":"uint256"}]},
	{"name":"batchSwapExactOut","type":"function","stateMutability":"view","inputs":[` + swapTuple + `,{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"maxTotalAmountIn","type":"uint256"}],"outputs":[{"name":"totalAmountIn","type":"uint256"}]}
]`

const wethABI = `[
	{"name":"deposit","type":"function","stateMutability":"payable","inputs":[],"outputs":[]},
	{"name":"withdraw","type":"function","stateMutability":"nonpayable","inputs":[{"name":"wad","type":"uint256"}],"outputs":[]},
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"guy","type":"address"},{"name":"wad","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

const multicallABI = `[
	{"name":"aggregate","type":"function","stateMutability":"nonpayable","inputs":[{"name":"calls","type":"tuple[]","components":[{"name":"target","type":"address"},{"name":"callData","type":"bytes"}]}],"outputs":[{"name":"blockNumber","type":"uint256"},{"name":"returnData","type":"bytes[]"}]},
	{"name":"getEthBalance","type":"function","stateMutability":"view","inputs":[{"name":"addr","type":"address"}],"outputs":[{"name":"balance","type":"uint256"}]},
	{"name":"getBlockNumber","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"blockNumber","type":"uint256"}]}
]`
