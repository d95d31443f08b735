package subgraph

const poolFields = `
	id
	controller
	finalized
	publicSwap
	swapFee
	totalWeight
	totalShares
	tokens {
		address
		symbol
		name
		decimals
		balance
		denormWeight
	}
`

const publicPoolsQuery = `query PublicPools($first: Int!) {
	pools(first: $first, where: {finalized: true, publicSwap: true, tokensCount_gt: 1}, orderBy: liquidity, orderDirection: desc) {` + poolFields + `}
}`

const privatePoolsQuery = `query PrivatePools($first: Int!) {
	pools(first: $first, where: {finalized: false, tokensCount_gt: 0}, orderBy: createTime, orderDirection: desc) {` + poolFields + `}
}`

const contributedPoolsQuery = `query ContributedPools($first: Int!, $account: String!) {
	poolShares(first: $first, where: {userAddress: $account, balance_gt: 0}) {
		poolId {` + poolFields + `}
	}
}`

const poolQuery = `query Pool($id: ID!) {
	pool(id: $id) {` + poolFields + `}
}`
