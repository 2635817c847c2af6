package vulkan

/**
 * @brief Max number of descriptor sets a single pool may serve
 * @todo TODO: make configurable
 */
const VULKAN_MAX_SETS_PER_POOL uint32 = 64

/**
 * @brief Pool headroom applied when the configuration carries none
 */
const VULKAN_DEFAULT_POOL_HEADROOM uint32 = 1
