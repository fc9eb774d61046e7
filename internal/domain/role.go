package domain

// RoleAdmin is the only role entitled to the aggregated activity feed.
const RoleAdmin = "admin"
