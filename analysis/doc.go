// Package analysis provides the cloud cost optimization domain capabilities
// the specialist agents expose to their models: compute right-sizing, storage
// and network waste detection, database utilization, spend breakdowns and
// aggregated recommendations.
//
// All handlers read resource inventory through the CloudClient interface so
// a real provider SDK can be swapped in without touching the handlers. The
// bundled StaticClient serves a fixed synthetic inventory, which keeps the
// whole system runnable without cloud credentials.
package analysis
