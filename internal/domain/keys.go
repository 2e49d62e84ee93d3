package domain

// KeyPrefix namespaces every key this service writes to a shared Valkey/Redis.
const KeyPrefix = "tripnote:"
