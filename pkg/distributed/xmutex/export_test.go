package xmutex

// =============================================================================
// 测试辅助：暴露内部常量用于黑盒测试
// =============================================================================

// MaxKeyLength 导出 key 长度上限，用于派生规则测试。
const MaxKeyLength = maxKeyLength
